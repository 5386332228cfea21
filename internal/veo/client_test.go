package veo

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"ad-studio/internal/config"
	"ad-studio/internal/logger"
	"ad-studio/internal/review"
	"ad-studio/internal/storage"
)

type fakeBackend struct {
	videos []*genai.Video
	err    error

	gotPrompt string
	gotConfig *genai.GenerateVideosConfig
	gotImage  *genai.Image
}

func (f *fakeBackend) GenerateVideos(_ context.Context, _, _, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig, _ time.Duration) ([]*genai.Video, error) {
	f.gotPrompt = prompt
	f.gotConfig = cfg
	f.gotImage = image
	if f.err != nil {
		return nil, f.err
	}
	return f.videos, nil
}

type fakeGateway struct {
	signErr error
	listed  []storage.Locator
}

func (f *fakeGateway) Put(context.Context, storage.Locator, io.Reader) (storage.Locator, error) {
	return storage.Locator{}, errors.New("unused")
}

func (f *fakeGateway) Get(context.Context, storage.Locator) (io.ReadCloser, error) {
	return nil, errors.New("unused")
}

func (f *fakeGateway) List(context.Context, storage.Locator) ([]storage.Locator, error) {
	return f.listed, nil
}

func (f *fakeGateway) SignedURL(loc storage.Locator, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + loc.Key, nil
}

func gateway(t *testing.T, signErr error) *fakeGateway {
	t.Helper()
	return &fakeGateway{signErr: signErr}
}

func testPipeline() *config.Pipeline {
	var p config.Pipeline
	p.Veo.Model = "veo-2.0-generate-001"
	p.Veo.SampleCount = 2
	p.Veo.MinDurationSec = 5
	p.Veo.MaxDurationSec = 8
	p.Veo.PollIntervalSec = 1
	p.Veo.PollTimeoutSec = 5
	p.Storage.ClipPrefix = "sessions"
	p.Storage.SignedURLTTLSec = 3600
	return &p
}

func request() review.ClipRequest {
	return review.ClipRequest{
		SessionID:       "s1",
		SceneIndex:      2,
		Attempt:         1,
		Prompt:          "a cinematic prompt",
		DurationSeconds: 30,
		Settings:        review.Settings{AspectRatio: "16:9", PersonGeneration: "allow_adult"},
	}
}

func TestGenerateMapsSamplesToClips(t *testing.T) {
	backend := &fakeBackend{videos: []*genai.Video{
		{URI: "gs://ads-test/raw/sample_0.mp4"},
		{URI: "gs://ads-test/raw/sample_1.mp4"},
	}}
	c := NewClient(logger.NewNop(), backend, gateway(t, nil), "ads-test", testPipeline())

	clips, err := c.Generate(context.Background(), request())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(clips))
	}
	if clips[0].Locator.Key != "raw/sample_0.mp4" {
		t.Fatalf("unexpected locator: %s", clips[0].Locator)
	}
	if !strings.HasPrefix(clips[0].PlayableURL, "https://signed.example/") {
		t.Fatalf("expected signed playable URL, got %s", clips[0].PlayableURL)
	}

	if backend.gotPrompt != "a cinematic prompt" {
		t.Fatalf("prompt not forwarded: %q", backend.gotPrompt)
	}
	cfg := backend.gotConfig
	if cfg.DurationSeconds == nil || *cfg.DurationSeconds != 8 {
		t.Fatalf("duration not clamped to max: %+v", cfg.DurationSeconds)
	}
	if cfg.NumberOfVideos != 2 || cfg.AspectRatio != "16:9" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.OutputGCSURI, "gs://ads-test/sessions/s1/scene_2/attempt_1_") {
		t.Fatalf("output prefix not collision-resistant: %s", cfg.OutputGCSURI)
	}
}

func TestGenerateFailurePropagates(t *testing.T) {
	backend := &fakeBackend{err: errors.New("deadline exceeded")}
	c := NewClient(logger.NewNop(), backend, gateway(t, nil), "ads-test", testPipeline())

	clips, err := c.Generate(context.Background(), request())
	if err == nil {
		t.Fatal("expected error")
	}
	if clips != nil {
		t.Fatalf("must not return clips on failure: %v", clips)
	}
}

func TestGenerateEmptyResultIsError(t *testing.T) {
	backend := &fakeBackend{videos: nil}
	c := NewClient(logger.NewNop(), backend, gateway(t, nil), "ads-test", testPipeline())

	if _, err := c.Generate(context.Background(), request()); err == nil {
		t.Fatal("expected error for empty sample set")
	}
}

func TestGenerateMissingURIFallsBackToListing(t *testing.T) {
	backend := &fakeBackend{videos: []*genai.Video{{URI: ""}}}
	gw := gateway(t, nil)
	gw.listed = []storage.Locator{
		{Bucket: "ads-test", Key: "sessions/s1/scene_2/attempt_1_ab/sample_0.mp4"},
		{Bucket: "ads-test", Key: "sessions/s1/scene_2/attempt_1_ab/sample_1.mp4"},
	}
	c := NewClient(logger.NewNop(), backend, gw, "ads-test", testPipeline())

	clips, err := c.Generate(context.Background(), request())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(clips) != 2 || clips[0].Locator != gw.listed[0] {
		t.Fatalf("listing fallback not used: %+v", clips)
	}
}

func TestGenerateMissingURIEmptyPrefixFails(t *testing.T) {
	backend := &fakeBackend{videos: []*genai.Video{{URI: ""}}}
	c := NewClient(logger.NewNop(), backend, gateway(t, nil), "ads-test", testPipeline())

	if _, err := c.Generate(context.Background(), request()); err == nil {
		t.Fatal("expected error when nothing lands under the output prefix")
	}
}

func TestPlayableURLFallsBackToPublicForm(t *testing.T) {
	backend := &fakeBackend{videos: []*genai.Video{{URI: "gs://ads-test/raw/sample_0.mp4"}}}
	c := NewClient(logger.NewNop(), backend, gateway(t, errors.New("no signer")), "ads-test", testPipeline())

	clips, err := c.Generate(context.Background(), request())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "https://storage.googleapis.com/ads-test/raw/sample_0.mp4"
	if clips[0].PlayableURL != want {
		t.Fatalf("got %s want %s", clips[0].PlayableURL, want)
	}
}

func TestReferenceImageForwarded(t *testing.T) {
	backend := &fakeBackend{videos: []*genai.Video{{URI: "gs://ads-test/raw/sample_0.mp4"}}}
	c := NewClient(logger.NewNop(), backend, gateway(t, nil), "ads-test", testPipeline())

	req := request()
	req.Settings.ReferenceImage = storage.Locator{Bucket: "ads-test", Key: "uploads/product.png"}
	if _, err := c.Generate(context.Background(), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if backend.gotImage == nil || backend.gotImage.GCSURI != "gs://ads-test/uploads/product.png" {
		t.Fatalf("reference image not forwarded: %+v", backend.gotImage)
	}
}
