package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ad-studio/internal/config"
	"ad-studio/internal/logger"
	"ad-studio/internal/storage"
)

// IncompatibleMediaError reports clips whose streams cannot be concatenated
// without re-encoding. Finalization refuses rather than emit a corrupt file.
type IncompatibleMediaError struct {
	Reference string
	Offending string
	Detail    string
}

func (e *IncompatibleMediaError) Error() string {
	return fmt.Sprintf("incompatible media: %s does not match %s (%s)", e.Offending, e.Reference, e.Detail)
}

// Result identifies the assembled ad in storage plus a browser-facing URL.
type Result struct {
	Locator     storage.Locator `json:"storage_locator"`
	PlayableURL string          `json:"playable_url"`
}

// streamInfo is the subset of ffprobe output that decides whether two clips
// can share a stream-copy concat.
type streamInfo struct {
	Codec       string
	Width       string
	Height      string
	PixelFormat string
	FrameRate   string
}

func (s streamInfo) String() string {
	return fmt.Sprintf("%s %sx%s %s @%s", s.Codec, s.Width, s.Height, s.PixelFormat, s.FrameRate)
}

// Assembler downloads confirmed clips, verifies they are stream-compatible,
// concatenates them with ffmpeg's concat demuxer, and uploads the result.
// probe and concat are swapped out in tests.
type Assembler struct {
	log      *logger.Logger
	store    storage.Gateway
	bucket   string
	pipeline *config.Pipeline

	probe  func(ctx context.Context, path string) (streamInfo, error)
	concat func(ctx context.Context, listFile, outputFile string) error
}

func NewAssembler(log *logger.Logger, store storage.Gateway, bucket string, pipeline *config.Pipeline) *Assembler {
	return &Assembler{
		log:      log.With("service", "media"),
		store:    store,
		bucket:   bucket,
		pipeline: pipeline,
		probe:    probeVideo,
		concat:   concatVideos,
	}
}

// Finalize assembles the given clips, in order, into a single MP4. Temp
// files are removed on every exit path; a failure leaves nothing behind in
// the output prefix.
func (a *Assembler) Finalize(ctx context.Context, sessionID string, clips []storage.Locator) (Result, error) {
	if len(clips) == 0 {
		return Result{}, fmt.Errorf("finalize %s: no clips", sessionID)
	}

	workDir, err := os.MkdirTemp("", "ad-studio-finalize-*")
	if err != nil {
		return Result{}, fmt.Errorf("finalize %s: %w", sessionID, err)
	}
	defer os.RemoveAll(workDir)

	localPaths := make([]string, 0, len(clips))
	for i, loc := range clips {
		path := filepath.Join(workDir, fmt.Sprintf("scene_%02d.mp4", i))
		if err := a.download(ctx, loc, path); err != nil {
			return Result{}, fmt.Errorf("finalize %s: download scene %d: %w", sessionID, i, err)
		}
		localPaths = append(localPaths, path)
	}

	if err := a.checkCompatibility(ctx, localPaths); err != nil {
		return Result{}, err
	}

	listFile := filepath.Join(workDir, "concat_list.txt")
	if err := writeConcatList(listFile, localPaths); err != nil {
		return Result{}, fmt.Errorf("finalize %s: %w", sessionID, err)
	}

	outputFile := filepath.Join(workDir, "final.mp4")
	start := time.Now()
	if err := a.concat(ctx, listFile, outputFile); err != nil {
		return Result{}, fmt.Errorf("finalize %s: %w", sessionID, err)
	}
	a.log.Info("clips stitched", "session", sessionID, "clips", len(clips), "took", time.Since(start))

	dst := storage.Locator{
		Bucket: a.bucket,
		Key:    fmt.Sprintf("%s/%s/final_%s.mp4", a.pipeline.Storage.OutputPrefix, sessionID, uuid.NewString()[:8]),
	}
	f, err := os.Open(outputFile)
	if err != nil {
		return Result{}, fmt.Errorf("finalize %s: %w", sessionID, err)
	}
	defer f.Close()

	uploaded, err := a.store.Put(ctx, dst, f)
	if err != nil {
		return Result{}, fmt.Errorf("finalize %s: upload: %w", sessionID, err)
	}

	url, err := a.store.SignedURL(uploaded, a.pipeline.SignedURLTTL())
	if err != nil {
		a.log.Warn("signing final video failed, falling back to public URL", "locator", uploaded.String(), "error", err)
		url = fmt.Sprintf("https://storage.googleapis.com/%s/%s", uploaded.Bucket, uploaded.Key)
	}
	return Result{Locator: uploaded, PlayableURL: url}, nil
}

func (a *Assembler) download(ctx context.Context, src storage.Locator, path string) error {
	r, err := a.store.Get(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// checkCompatibility probes every clip and compares against the first.
// Stream copy only works when codec, resolution, pixel format, and frame
// rate all match.
func (a *Assembler) checkCompatibility(ctx context.Context, paths []string) error {
	ref, err := a.probe(ctx, paths[0])
	if err != nil {
		return fmt.Errorf("probe %s: %w", filepath.Base(paths[0]), err)
	}
	for _, path := range paths[1:] {
		info, err := a.probe(ctx, path)
		if err != nil {
			return fmt.Errorf("probe %s: %w", filepath.Base(path), err)
		}
		if info != ref {
			return &IncompatibleMediaError{
				Reference: ref.String(),
				Offending: filepath.Base(path),
				Detail:    info.String(),
			}
		}
	}
	return nil
}

func writeConcatList(listFile string, paths []string) error {
	var b strings.Builder
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	return os.WriteFile(listFile, []byte(b.String()), 0o644)
}

func probeVideo(ctx context.Context, path string) (streamInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,pix_fmt,r_frame_rate",
		"-of", "csv=p=0",
		path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return streamInfo{}, fmt.Errorf("ffprobe error: %s : %s", err, string(output))
	}
	fields := strings.Split(strings.TrimSpace(string(output)), ",")
	if len(fields) < 5 {
		return streamInfo{}, fmt.Errorf("ffprobe: unexpected output %q", string(output))
	}
	return streamInfo{Codec: fields[0], Width: fields[1], Height: fields[2], PixelFormat: fields[3], FrameRate: fields[4]}, nil
}

func concatVideos(ctx context.Context, listFile, outputFile string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outputFile)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("stitch error: %s : %s", err, string(output))
	}
	return nil
}
