package storage

import (
	"fmt"
	"strings"
)

// Locator is the durable address of a blob, in gs://bucket/path form.
// It is the identity of a clip; any playback URL is derived from it.
type Locator struct {
	Bucket string
	Key    string
}

func (l Locator) String() string {
	return fmt.Sprintf("gs://%s/%s", l.Bucket, l.Key)
}

func (l Locator) IsZero() bool {
	return l.Bucket == "" && l.Key == ""
}

// ParseLocator accepts gs://bucket/path URIs.
func ParseLocator(uri string) (Locator, error) {
	const scheme = "gs://"
	if !strings.HasPrefix(uri, scheme) {
		return Locator{}, fmt.Errorf("invalid locator %q: expected gs:// scheme", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Locator{}, fmt.Errorf("invalid locator %q: expected gs://bucket/path", uri)
	}
	return Locator{Bucket: bucket, Key: key}, nil
}
