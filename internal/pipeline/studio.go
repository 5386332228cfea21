package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ad-studio/internal/logger"
	"ad-studio/internal/media"
	"ad-studio/internal/review"
	"ad-studio/internal/script"
	"ad-studio/internal/storage"
)

// sceneConcurrency caps parallel Veo jobs per session so one large session
// cannot exhaust the project's generation quota.
const sceneConcurrency = 2

// ScriptWriter turns an ad idea into an outline and compiles it into
// renderable scene prompts.
type ScriptWriter interface {
	Expand(ctx context.Context, idea string) (script.Outline, error)
	Compile(ctx context.Context, outline script.Outline) ([]script.SceneSpec, error)
}

// Finalizer assembles confirmed clips into the finished ad.
type Finalizer interface {
	Finalize(ctx context.Context, sessionID string, clips []storage.Locator) (media.Result, error)
}

// Studio wires the full flow together: idea expansion, prompt compilation,
// the initial clip batch, the review registry, and finalization.
type Studio struct {
	log       *logger.Logger
	writer    ScriptWriter
	gen       review.ClipGenerator
	assembler Finalizer
	sessions  *review.Registry
}

func NewStudio(log *logger.Logger, writer ScriptWriter, gen review.ClipGenerator, assembler Finalizer) *Studio {
	return &Studio{
		log:       log.With("service", "studio"),
		writer:    writer,
		gen:       gen,
		assembler: assembler,
		sessions:  review.NewRegistry(),
	}
}

// CreateSession runs the generation pipeline for a new ad idea and returns
// the session in review state. Scenes whose first generation fails carry the
// error on their state instead of failing the whole session; the user can
// rework the prompt and regenerate them.
func (s *Studio) CreateSession(ctx context.Context, idea string, settings review.Settings) (*review.Session, error) {
	outline, err := s.writer.Expand(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("expand idea: %w", err)
	}
	specs, err := s.writer.Compile(ctx, outline)
	if err != nil {
		return nil, fmt.Errorf("compile prompts: %w", err)
	}

	id := uuid.NewString()
	sess, err := review.NewSession(id, idea, specs, settings, s.gen, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Info("session created", "session", id, "scenes", len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sceneConcurrency)
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			clips, genErr := s.gen.Generate(gctx, review.ClipRequest{
				SessionID:       id,
				SceneIndex:      spec.Index,
				Attempt:         0,
				Prompt:          spec.CompiledPrompt,
				DurationSeconds: spec.DurationSeconds,
				Settings:        settings,
			})
			if genErr != nil {
				return sess.MarkGenerationFailed(spec.Index, genErr)
			}
			return sess.SeedCandidates(spec.Index, clips)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.sessions.Add(sess)
	return sess, nil
}

// Session looks up an active review session by ID.
func (s *Studio) Session(id string) (*review.Session, error) {
	return s.sessions.Get(id)
}

// Finalize assembles the session's confirmed clips, in scene order, into the
// finished ad. It fails with review.NotReadyError while any scene remains
// unconfirmed.
func (s *Studio) Finalize(ctx context.Context, sessionID string) (media.Result, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return media.Result{}, err
	}
	locators, err := sess.ConfirmedLocators()
	if err != nil {
		return media.Result{}, err
	}
	return s.assembler.Finalize(ctx, sess.ID, locators)
}

// CloseSession drops a session from the registry once the user is done
// with it.
func (s *Studio) CloseSession(id string) {
	s.sessions.Remove(id)
}
