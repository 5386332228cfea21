package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ad-studio/internal/config"
	"ad-studio/internal/logger"
	"ad-studio/internal/storage"
)

type memGateway struct {
	objects map[string][]byte
	putErr  error
}

func newMemGateway() *memGateway {
	return &memGateway{objects: map[string][]byte{}}
}

func (m *memGateway) Put(_ context.Context, dst storage.Locator, r io.Reader) (storage.Locator, error) {
	if m.putErr != nil {
		return storage.Locator{}, m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Locator{}, err
	}
	m.objects[dst.String()] = data
	return dst, nil
}

func (m *memGateway) Get(_ context.Context, src storage.Locator) (io.ReadCloser, error) {
	data, ok := m.objects[src.String()]
	if !ok {
		return nil, errors.New("object not found: " + src.String())
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memGateway) List(context.Context, storage.Locator) ([]storage.Locator, error) {
	return nil, errors.New("unused")
}

func (m *memGateway) SignedURL(loc storage.Locator, _ time.Duration) (string, error) {
	return "https://signed.example/" + loc.Key, nil
}

func testAssembler(t *testing.T, store storage.Gateway) *Assembler {
	t.Helper()
	var p config.Pipeline
	p.Storage.OutputPrefix = "final"
	p.Storage.SignedURLTTLSec = 3600

	a := NewAssembler(logger.NewNop(), store, "ads-test", &p)
	a.probe = func(_ context.Context, _ string) (streamInfo, error) {
		return streamInfo{Codec: "h264", Width: "1280", Height: "720", PixelFormat: "yuv420p", FrameRate: "24/1"}, nil
	}
	a.concat = func(_ context.Context, listFile, outputFile string) error {
		return os.WriteFile(outputFile, []byte("stitched"), 0o644)
	}
	return a
}

func seedClips(store *memGateway, n int) []storage.Locator {
	clips := make([]storage.Locator, 0, n)
	for i := 0; i < n; i++ {
		loc := storage.Locator{Bucket: "ads-test", Key: "sessions/s1/scene_" + string(rune('0'+i)) + "/clip.mp4"}
		store.objects[loc.String()] = []byte("clip")
		clips = append(clips, loc)
	}
	return clips
}

func TestFinalizeUploadsStitchedVideo(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := seedClips(store, 3)

	res, err := a.Finalize(context.Background(), "s1", clips)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Locator.Bucket != "ads-test" || !strings.HasPrefix(res.Locator.Key, "final/s1/final_") {
		t.Fatalf("unexpected output locator: %s", res.Locator)
	}
	if string(store.objects[res.Locator.String()]) != "stitched" {
		t.Fatal("stitched output not uploaded")
	}
	if !strings.HasPrefix(res.PlayableURL, "https://signed.example/") {
		t.Fatalf("unexpected playable URL: %s", res.PlayableURL)
	}
}

func TestFinalizePreservesClipOrder(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := seedClips(store, 3)

	var gotList string
	a.concat = func(_ context.Context, listFile, outputFile string) error {
		data, err := os.ReadFile(listFile)
		if err != nil {
			return err
		}
		gotList = string(data)
		return os.WriteFile(outputFile, []byte("stitched"), 0o644)
	}

	if _, err := a.Finalize(context.Background(), "s1", clips); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(gotList), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 entries, got %d: %q", len(lines), gotList)
	}
	for i, line := range lines {
		want := "scene_0" + string(rune('0'+i)) + ".mp4"
		if !strings.Contains(line, want) {
			t.Fatalf("line %d = %q, want suffix %s", i, line, want)
		}
	}
}

func TestFinalizeRejectsIncompatibleStreams(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := seedClips(store, 2)

	calls := 0
	a.probe = func(_ context.Context, _ string) (streamInfo, error) {
		calls++
		if calls == 2 {
			return streamInfo{Codec: "h264", Width: "1920", Height: "1080", PixelFormat: "yuv420p", FrameRate: "24/1"}, nil
		}
		return streamInfo{Codec: "h264", Width: "1280", Height: "720", PixelFormat: "yuv420p", FrameRate: "24/1"}, nil
	}

	_, err := a.Finalize(context.Background(), "s1", clips)
	var incompat *IncompatibleMediaError
	if !errors.As(err, &incompat) {
		t.Fatalf("expected IncompatibleMediaError, got %v", err)
	}
	if len(store.objects) != 2 {
		t.Fatal("nothing new should be uploaded on incompatibility")
	}
}

func TestFinalizeRejectsFrameRateMismatch(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := seedClips(store, 2)

	calls := 0
	a.probe = func(_ context.Context, _ string) (streamInfo, error) {
		calls++
		info := streamInfo{Codec: "h264", Width: "1280", Height: "720", PixelFormat: "yuv420p", FrameRate: "24/1"}
		if calls == 2 {
			info.FrameRate = "30/1"
		}
		return info, nil
	}

	_, err := a.Finalize(context.Background(), "s1", clips)
	var incompat *IncompatibleMediaError
	if !errors.As(err, &incompat) {
		t.Fatalf("expected IncompatibleMediaError, got %v", err)
	}
}

func TestFinalizeMissingClipFails(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := []storage.Locator{{Bucket: "ads-test", Key: "sessions/s1/scene_0/clip.mp4"}}

	if _, err := a.Finalize(context.Background(), "s1", clips); err == nil {
		t.Fatal("expected error for missing source clip")
	}
}

func TestFinalizeEmptyInputFails(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)

	if _, err := a.Finalize(context.Background(), "s1", nil); err == nil {
		t.Fatal("expected error for empty clip list")
	}
}

func TestFinalizeCleansUpTempFiles(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := seedClips(store, 2)

	var workDir string
	a.concat = func(_ context.Context, listFile, outputFile string) error {
		workDir = filepath.Dir(listFile)
		return os.WriteFile(outputFile, []byte("stitched"), 0o644)
	}

	if _, err := a.Finalize(context.Background(), "s1", clips); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("temp dir %s should be removed", workDir)
	}
}

func TestFinalizeUploadFailureCleansUp(t *testing.T) {
	store := newMemGateway()
	a := testAssembler(t, store)
	clips := seedClips(store, 2)
	store.putErr = errors.New("bucket unavailable")

	var workDir string
	a.concat = func(_ context.Context, listFile, outputFile string) error {
		workDir = filepath.Dir(listFile)
		return os.WriteFile(outputFile, []byte("stitched"), 0o644)
	}

	if _, err := a.Finalize(context.Background(), "s1", clips); err == nil {
		t.Fatal("expected upload error")
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("temp dir %s should be removed on failure", workDir)
	}
}
