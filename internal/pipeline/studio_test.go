package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ad-studio/internal/logger"
	"ad-studio/internal/media"
	"ad-studio/internal/review"
	"ad-studio/internal/script"
	"ad-studio/internal/storage"
)

type fakeWriter struct {
	specs      []script.SceneSpec
	expandErr  error
	compileErr error
}

func (f *fakeWriter) Expand(_ context.Context, idea string) (script.Outline, error) {
	if f.expandErr != nil {
		return script.Outline{}, f.expandErr
	}
	scenes := make([]script.SceneSpec, len(f.specs))
	copy(scenes, f.specs)
	return script.Outline{Scenes: scenes}, nil
}

func (f *fakeWriter) Compile(_ context.Context, _ script.Outline) ([]script.SceneSpec, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	return f.specs, nil
}

type fakeGen struct {
	mu       sync.Mutex
	requests []review.ClipRequest
	failOn   map[int]error
}

func (f *fakeGen) Generate(_ context.Context, req review.ClipRequest) ([]review.CandidateClip, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err, ok := f.failOn[req.SceneIndex]; ok {
		return nil, err
	}
	loc := storage.Locator{
		Bucket: "ads-test",
		Key:    fmt.Sprintf("sessions/%s/scene_%d/attempt_%d/clip.mp4", req.SessionID, req.SceneIndex, req.Attempt),
	}
	return []review.CandidateClip{{Locator: loc, PlayableURL: "https://signed.example/" + loc.Key}}, nil
}

type fakeFinalizer struct {
	gotClips []storage.Locator
	err      error
}

func (f *fakeFinalizer) Finalize(_ context.Context, sessionID string, clips []storage.Locator) (media.Result, error) {
	f.gotClips = clips
	if f.err != nil {
		return media.Result{}, f.err
	}
	return media.Result{
		Locator:     storage.Locator{Bucket: "ads-test", Key: "final/" + sessionID + "/final.mp4"},
		PlayableURL: "https://signed.example/final.mp4",
	}, nil
}

func specs(n int) []script.SceneSpec {
	out := make([]script.SceneSpec, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, script.SceneSpec{
			Index:           i,
			Description:     fmt.Sprintf("scene %d", i),
			CompiledPrompt:  fmt.Sprintf("prompt %d", i),
			DurationSeconds: 5,
		})
	}
	return out
}

func TestCreateSessionSeedsAllScenes(t *testing.T) {
	gen := &fakeGen{}
	studio := NewStudio(logger.NewNop(), &fakeWriter{specs: specs(3)}, gen, &fakeFinalizer{})

	sess, err := studio.CreateSession(context.Background(), "a soda ad", review.Settings{AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, sc := range sess.Scenes() {
		if sc.Status() != review.StatusReviewing {
			t.Fatalf("scene %d: status %s, want reviewing", sc.SceneIndex, sc.Status())
		}
		if len(sc.Candidates) != 1 {
			t.Fatalf("scene %d: %d candidates", sc.SceneIndex, len(sc.Candidates))
		}
	}
	if len(gen.requests) != 3 {
		t.Fatalf("expected 3 generation requests, got %d", len(gen.requests))
	}

	got, err := studio.Session(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("registry lookup failed: %v", err)
	}
}

func TestCreateSessionSceneFailureIsNotFatal(t *testing.T) {
	gen := &fakeGen{failOn: map[int]error{1: errors.New("quota exhausted")}}
	studio := NewStudio(logger.NewNop(), &fakeWriter{specs: specs(3)}, gen, &fakeFinalizer{})

	sess, err := studio.CreateSession(context.Background(), "a soda ad", review.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	scenes := sess.Scenes()
	if scenes[1].Status() != review.StatusPending || scenes[1].LastError == "" {
		t.Fatalf("scene 1 should be pending with an error, got %s %q", scenes[1].Status(), scenes[1].LastError)
	}
	if scenes[0].Status() != review.StatusReviewing || scenes[2].Status() != review.StatusReviewing {
		t.Fatal("healthy scenes should still be seeded")
	}
}

func TestCreateSessionExpandFailure(t *testing.T) {
	studio := NewStudio(logger.NewNop(), &fakeWriter{expandErr: errors.New("model unavailable")}, &fakeGen{}, &fakeFinalizer{})

	if _, err := studio.CreateSession(context.Background(), "a soda ad", review.Settings{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFinalizeRequiresAllConfirmed(t *testing.T) {
	studio := NewStudio(logger.NewNop(), &fakeWriter{specs: specs(2)}, &fakeGen{}, &fakeFinalizer{})

	sess, err := studio.CreateSession(context.Background(), "a soda ad", review.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.Confirm(0); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	_, err = studio.Finalize(context.Background(), sess.ID)
	var notReady *review.NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
}

func TestFinalizePassesOrderedClips(t *testing.T) {
	fin := &fakeFinalizer{}
	studio := NewStudio(logger.NewNop(), &fakeWriter{specs: specs(3)}, &fakeGen{}, fin)

	sess, err := studio.CreateSession(context.Background(), "a soda ad", review.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Confirm out of order; assembly must still run in scene order.
	for _, i := range []int{2, 0, 1} {
		if err := sess.Confirm(i); err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}

	res, err := studio.Finalize(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.PlayableURL == "" {
		t.Fatal("missing playable URL")
	}
	for i, loc := range fin.gotClips {
		want := fmt.Sprintf("/scene_%d/", i)
		if !strings.Contains(loc.Key, want) {
			t.Fatalf("clip %d out of order: %s", i, loc.Key)
		}
	}
}

func TestFinalizeUnknownSession(t *testing.T) {
	studio := NewStudio(logger.NewNop(), &fakeWriter{}, &fakeGen{}, &fakeFinalizer{})

	if _, err := studio.Finalize(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCloseSessionRemovesIt(t *testing.T) {
	studio := NewStudio(logger.NewNop(), &fakeWriter{specs: specs(1)}, &fakeGen{}, &fakeFinalizer{})

	sess, err := studio.CreateSession(context.Background(), "a soda ad", review.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	studio.CloseSession(sess.ID)
	if _, err := studio.Session(sess.ID); err == nil {
		t.Fatal("session should be gone")
	}
}
