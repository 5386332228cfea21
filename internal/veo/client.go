package veo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"ad-studio/internal/config"
	"ad-studio/internal/logger"
	"ad-studio/internal/review"
	"ad-studio/internal/storage"
)

// videoBackend is the slice of ai.Service the clip client needs; tests
// substitute a fake.
type videoBackend interface {
	GenerateVideos(ctx context.Context, jobID, modelName, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig, pollInterval time.Duration) ([]*genai.Video, error)
}

// Client renders one compiled prompt into candidate clips through the Veo
// API: submit, poll to terminal status within the configured deadline, then
// map the produced GCS URIs into locators plus signed playback URLs.
type Client struct {
	log      *logger.Logger
	ai       videoBackend
	store    storage.Gateway
	bucket   string
	pipeline *config.Pipeline
}

var _ review.ClipGenerator = (*Client)(nil)

func NewClient(log *logger.Logger, backend videoBackend, store storage.Gateway, bucket string, pipeline *config.Pipeline) *Client {
	return &Client{
		log:      log.With("service", "veo"),
		ai:       backend,
		store:    store,
		bucket:   bucket,
		pipeline: pipeline,
	}
}

// Generate implements review.ClipGenerator. A provider failure, timeout, or
// empty result returns an error and no clips; it never hands back a
// partially-populated list.
func (c *Client) Generate(ctx context.Context, req review.ClipRequest) ([]review.CandidateClip, error) {
	jobID := fmt.Sprintf("%s/scene_%d/attempt_%d", req.SessionID, req.SceneIndex, req.Attempt)

	// Unique per generation so concurrent regenerations never collide on a
	// storage prefix.
	outputPrefix := storage.Locator{
		Bucket: c.bucket,
		Key: fmt.Sprintf("%s/%s/scene_%d/attempt_%d_%s",
			c.pipeline.Storage.ClipPrefix, req.SessionID, req.SceneIndex, req.Attempt, uuid.NewString()[:8]),
	}

	duration := int32(c.pipeline.ClampDuration(req.DurationSeconds))
	vidConfig := &genai.GenerateVideosConfig{
		AspectRatio:      req.Settings.AspectRatio,
		PersonGeneration: req.Settings.PersonGeneration,
		NegativePrompt:   req.Settings.NegativePrompt,
		DurationSeconds:  &duration,
		NumberOfVideos:   int32(c.pipeline.Veo.SampleCount),
		OutputGCSURI:     outputPrefix.String(),
	}

	var image *genai.Image
	if !req.Settings.ReferenceImage.IsZero() {
		image = &genai.Image{GCSURI: req.Settings.ReferenceImage.String()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.pipeline.PollTimeout())
	defer cancel()

	videos, err := c.ai.GenerateVideos(ctx, jobID, c.pipeline.Veo.Model, req.Prompt, image, vidConfig, c.pipeline.PollInterval())
	if err != nil {
		return nil, fmt.Errorf("veo job %s: %w", jobID, err)
	}

	locators, err := c.clipLocators(ctx, jobID, videos, outputPrefix)
	if err != nil {
		return nil, err
	}

	clips := make([]review.CandidateClip, 0, len(locators))
	for _, loc := range locators {
		clips = append(clips, review.CandidateClip{
			Locator:     loc,
			PlayableURL: c.playableURL(loc),
		})
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("veo job %s: no clips produced", jobID)
	}
	c.log.Info("clips generated", "job", jobID, "count", len(clips))
	return clips, nil
}

// clipLocators resolves the produced samples to storage locators. Some model
// versions omit per-sample URIs even though the files land under the output
// prefix; listing the prefix recovers them.
func (c *Client) clipLocators(ctx context.Context, jobID string, videos []*genai.Video, outputPrefix storage.Locator) ([]storage.Locator, error) {
	locators := make([]storage.Locator, 0, len(videos))
	for _, v := range videos {
		if v.URI == "" {
			c.log.Warn("sample missing URI, listing output prefix", "job", jobID)
			found, err := c.store.List(ctx, outputPrefix)
			if err != nil {
				return nil, fmt.Errorf("veo job %s: list output: %w", jobID, err)
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("veo job %s: no clips under %s", jobID, outputPrefix)
			}
			return found, nil
		}
		loc, err := storage.ParseLocator(v.URI)
		if err != nil {
			return nil, fmt.Errorf("veo job %s: %w", jobID, err)
		}
		locators = append(locators, loc)
	}
	return locators, nil
}

// playableURL derives a browser-facing URL for a clip. Signed URLs expire;
// they are re-derived from the locator whenever needed and never stored as
// the clip's identity.
func (c *Client) playableURL(loc storage.Locator) string {
	url, err := c.store.SignedURL(loc, c.pipeline.SignedURLTTL())
	if err != nil {
		c.log.Warn("signing failed, falling back to public URL", "locator", loc.String(), "error", err)
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", loc.Bucket, strings.TrimPrefix(loc.Key, "/"))
	}
	return url
}
