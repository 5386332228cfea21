package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"ad-studio/internal/logger"
)

// Gateway is the minimal blob-store surface the pipeline needs.
// All methods wrap failures in *Error so callers can distinguish
// storage faults from generation faults.
type Gateway interface {
	Put(ctx context.Context, dst Locator, r io.Reader) (Locator, error)
	Get(ctx context.Context, src Locator) (io.ReadCloser, error)
	List(ctx context.Context, prefix Locator) ([]Locator, error)
	SignedURL(src Locator, ttl time.Duration) (string, error)
}

// Error wraps any blob put/get/list/sign failure.
type Error struct {
	Op      string
	Locator Locator
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Locator, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type gcsGateway struct {
	log    *logger.Logger
	client *gcs.Client
}

func NewGCSGateway(ctx context.Context, log *logger.Logger) (Gateway, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsGateway{
		log:    log.With("service", "storage"),
		client: client,
	}, nil
}

func (g *gcsGateway) Put(ctx context.Context, dst Locator, r io.Reader) (Locator, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(dst.Bucket).Object(dst.Key).NewWriter(ctx)
	w.ContentType = "video/mp4"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return Locator{}, &Error{Op: "put", Locator: dst, Err: err}
	}
	if err := w.Close(); err != nil {
		return Locator{}, &Error{Op: "put", Locator: dst, Err: err}
	}
	g.log.Debug("uploaded blob", "locator", dst.String())
	return dst, nil
}

// readCloserWithCancel ties the read context's lifetime to the reader.
// Cancelling before the caller has drained the reader yields 0 bytes.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

func (g *gcsGateway) Get(ctx context.Context, src Locator) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := g.client.Bucket(src.Bucket).Object(src.Key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, &Error{Op: "get", Locator: src, Err: err}
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (g *gcsGateway) List(ctx context.Context, prefix Locator) ([]Locator, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := g.client.Bucket(prefix.Bucket).Objects(ctx, &gcs.Query{Prefix: prefix.Key})
	var out []Locator
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &Error{Op: "list", Locator: prefix, Err: err}
		}
		out = append(out, Locator{Bucket: prefix.Bucket, Key: attrs.Name})
	}
	return out, nil
}

func (g *gcsGateway) SignedURL(src Locator, ttl time.Duration) (string, error) {
	url, err := g.client.Bucket(src.Bucket).SignedURL(src.Key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", &Error{Op: "sign", Locator: src, Err: err}
	}
	return url, nil
}
