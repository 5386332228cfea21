package review

import (
	"context"
	"fmt"
	"sync"

	"ad-studio/internal/logger"
	"ad-studio/internal/script"
	"ad-studio/internal/storage"
)

// Status is the review lifecycle of one scene.
type Status string

const (
	// StatusPending: no candidates yet (generation not done, or it failed).
	StatusPending Status = "pending"
	// StatusReviewing: candidates present, none fixed yet.
	StatusReviewing Status = "reviewing"
	// StatusConfirmed: one clip fixed; mutations rejected until Unconfirm.
	StatusConfirmed Status = "confirmed"
)

// CandidateClip is one rendered sample for a scene. Locator is the clip's
// identity; PlayableURL is a derived, possibly expiring convenience for the
// browser and is never used to confirm or finalize.
type CandidateClip struct {
	Locator     storage.Locator `json:"storage_locator"`
	PlayableURL string          `json:"playable_url"`
}

// Settings are the session-wide generation parameters collected from the
// input form.
type Settings struct {
	AspectRatio      string          `json:"aspect_ratio"`
	PersonGeneration string          `json:"person_generation"`
	NegativePrompt   string          `json:"negative_prompt,omitempty"`
	ReferenceImage   storage.Locator `json:"-"`
}

// ClipRequest carries everything the clip generator needs for one scene.
// Attempt increases with each regeneration so storage prefixes never collide.
type ClipRequest struct {
	SessionID       string
	SceneIndex      int
	Attempt         int
	Prompt          string
	DurationSeconds int
	Settings        Settings
}

// ClipGenerator renders one scene's prompt into candidate clips. A failed
// or timed-out job returns an error and no clips, never a partial list.
type ClipGenerator interface {
	Generate(ctx context.Context, req ClipRequest) ([]CandidateClip, error)
}

// SceneState is the mutable review state of one scene. All fields are
// guarded by the owning session's lock.
type SceneState struct {
	SceneIndex     int
	PromptText     string
	BaselinePrompt string
	Candidates     []CandidateClip
	SelectedIndex  int
	Confirmed      bool
	// ConfirmedLocator is copied from the selected candidate at confirm
	// time, so a later regeneration cannot retroactively change what was
	// confirmed.
	ConfirmedLocator storage.Locator
	// LastError is the scene-scoped message of the most recent failed
	// generation, cleared on success.
	LastError string

	attempt int
	busy    bool
}

// Edited reports whether the prompt differs from the one the current
// candidates were generated for.
func (s *SceneState) Edited() bool {
	return s.PromptText != s.BaselinePrompt
}

func (s *SceneState) Status() Status {
	switch {
	case s.Confirmed:
		return StatusConfirmed
	case len(s.Candidates) > 0:
		return StatusReviewing
	default:
		return StatusPending
	}
}

// clampSelection is the single place the "first candidate wins" policy and
// bounds recovery live: any stale or out-of-range index falls back to 0.
func clampSelection(selected, candidates int) int {
	if selected < 0 || selected >= candidates {
		return 0
	}
	return selected
}

// Session owns the scene states for one review pass over one ad idea. It is
// created after prompt compilation, seeded with the first generation batch,
// and discarded when the user returns to idea entry. All operations are
// safe for concurrent use; per-scene mutation is serialized.
type Session struct {
	mu sync.Mutex

	ID       string
	Idea     string
	Settings Settings

	specs  []script.SceneSpec
	scenes []*SceneState

	gen ClipGenerator
	log *logger.Logger
}

func NewSession(id, idea string, specs []script.SceneSpec, settings Settings, gen ClipGenerator, log *logger.Logger) (*Session, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("session needs at least one scene")
	}
	scenes := make([]*SceneState, len(specs))
	for i, spec := range specs {
		if spec.Index != i {
			return nil, fmt.Errorf("scene specs out of order: spec %d has index %d", i, spec.Index)
		}
		scenes[i] = &SceneState{
			SceneIndex:     spec.Index,
			PromptText:     spec.CompiledPrompt,
			BaselinePrompt: spec.CompiledPrompt,
		}
	}
	return &Session{
		ID:       id,
		Idea:     idea,
		Settings: settings,
		specs:    specs,
		scenes:   scenes,
		gen:      gen,
		log:      log.With("session", id),
	}, nil
}

func (s *Session) scene(index int) (*SceneState, error) {
	if index < 0 || index >= len(s.scenes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScene, index)
	}
	return s.scenes[index], nil
}

// SceneCount returns the number of scenes; indices are 0..SceneCount-1 and
// never change for the life of the session.
func (s *Session) SceneCount() int {
	return len(s.scenes)
}

// SeedCandidates installs the initial generation batch for one scene. The
// selection resets to the first candidate.
func (s *Session) SeedCandidates(index int, clips []CandidateClip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.scene(index)
	if err != nil {
		return err
	}
	if st.Confirmed {
		return fmt.Errorf("scene %d: %w", index, ErrSceneConfirmed)
	}
	if st.busy {
		return fmt.Errorf("scene %d: %w", index, ErrSceneBusy)
	}
	st.Candidates = clips
	st.SelectedIndex = 0
	st.LastError = ""
	return nil
}

// MarkGenerationFailed records a scene-scoped generation failure. The scene
// stays pending (or keeps its previous candidates) and the rest of the
// session is untouched.
func (s *Session) MarkGenerationFailed(index int, genErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.scene(index)
	if err != nil {
		return err
	}
	st.LastError = genErr.Error()
	return nil
}

// EditPrompt replaces the scene's prompt text. This is a pure local edit:
// no regeneration is triggered, and the existing candidates still belong to
// the baseline prompt.
func (s *Session) EditPrompt(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.scene(index)
	if err != nil {
		return err
	}
	if st.Confirmed {
		return fmt.Errorf("scene %d: %w", index, ErrSceneConfirmed)
	}
	st.PromptText = text
	return nil
}

// SelectCandidate moves the selection. An out-of-range index is a
// recoverable user error: state stays as it was.
func (s *Session) SelectCandidate(index, candidate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.scene(index)
	if err != nil {
		return err
	}
	if st.Confirmed {
		return fmt.Errorf("scene %d: %w", index, ErrSceneConfirmed)
	}
	if candidate < 0 || candidate >= len(st.Candidates) {
		return fmt.Errorf("scene %d has %d candidates: %w", index, len(st.Candidates), ErrInvalidSelection)
	}
	st.SelectedIndex = candidate
	return nil
}

// Confirm fixes the currently selected candidate as the scene's final clip.
// The locator is copied, not referenced.
func (s *Session) Confirm(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.scene(index)
	if err != nil {
		return err
	}
	if st.Confirmed {
		return fmt.Errorf("scene %d: %w", index, ErrSceneConfirmed)
	}
	if st.busy {
		return fmt.Errorf("scene %d: %w", index, ErrSceneBusy)
	}
	if len(st.Candidates) == 0 {
		return fmt.Errorf("scene %d has no candidates to confirm: %w", index, ErrInvalidSelection)
	}
	st.SelectedIndex = clampSelection(st.SelectedIndex, len(st.Candidates))
	st.ConfirmedLocator = st.Candidates[st.SelectedIndex].Locator
	st.Confirmed = true
	s.log.Info("scene confirmed", "scene", index, "clip", st.ConfirmedLocator.String())
	return nil
}

// Unconfirm explicitly reopens a confirmed scene for review. Candidates,
// selection, and prompt are left as they were at confirmation time.
func (s *Session) Unconfirm(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.scene(index)
	if err != nil {
		return err
	}
	if !st.Confirmed {
		return fmt.Errorf("scene %d: %w", index, ErrNotConfirmed)
	}
	st.Confirmed = false
	st.ConfirmedLocator = storage.Locator{}
	s.log.Info("scene unconfirmed", "scene", index)
	return nil
}

// Regenerate re-renders one scene from its edited prompt. On success the
// candidate set is replaced wholesale, selection resets to the first clip,
// and the edited prompt becomes the new baseline. On failure the scene's
// previous candidates and selection are untouched.
func (s *Session) Regenerate(ctx context.Context, index int) error {
	s.mu.Lock()
	st, err := s.scene(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if st.Confirmed {
		s.mu.Unlock()
		return fmt.Errorf("scene %d: %w", index, ErrSceneConfirmed)
	}
	if st.busy {
		s.mu.Unlock()
		return fmt.Errorf("scene %d: %w", index, ErrSceneBusy)
	}
	if !st.Edited() {
		s.mu.Unlock()
		return fmt.Errorf("scene %d: %w", index, ErrNotEdited)
	}

	st.busy = true
	st.attempt++
	req := ClipRequest{
		SessionID:       s.ID,
		SceneIndex:      index,
		Attempt:         st.attempt,
		Prompt:          st.PromptText,
		DurationSeconds: s.specs[index].DurationSeconds,
		Settings:        s.Settings,
	}
	s.mu.Unlock()

	clips, genErr := s.gen.Generate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.busy = false

	if genErr != nil {
		st.LastError = genErr.Error()
		s.log.Warn("regeneration failed", "scene", index, "error", genErr)
		return &GenerationError{SceneIndex: index, Err: genErr}
	}

	st.Candidates = clips
	st.SelectedIndex = 0
	st.Confirmed = false
	st.ConfirmedLocator = storage.Locator{}
	st.BaselinePrompt = req.Prompt
	st.LastError = ""
	s.log.Info("scene regenerated", "scene", index, "candidates", len(clips))
	return nil
}

// Ready reports whether every scene is confirmed and the session is
// non-empty.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.missingLocked()) == 0 && len(s.scenes) > 0
}

func (s *Session) missingLocked() []int {
	var missing []int
	for _, st := range s.scenes {
		if !st.Confirmed {
			missing = append(missing, st.SceneIndex)
		}
	}
	return missing
}

// ConfirmedLocators returns the confirmed clip locators ordered by stable
// scene index. This ordering defines final playback order.
func (s *Session) ConfirmedLocators() ([]storage.Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if missing := s.missingLocked(); len(missing) > 0 {
		return nil, &NotReadyError{Missing: missing}
	}
	out := make([]storage.Locator, len(s.scenes))
	for i, st := range s.scenes {
		out[i] = st.ConfirmedLocator
	}
	return out, nil
}

// Scenes returns a copy of the per-scene states for read-only use.
func (s *Session) Scenes() []SceneState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SceneState, len(s.scenes))
	for i, st := range s.scenes {
		copied := *st
		copied.Candidates = append([]CandidateClip(nil), st.Candidates...)
		out[i] = copied
	}
	return out
}
