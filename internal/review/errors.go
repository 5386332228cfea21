package review

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelection is warning-grade: the user pointed at a candidate
	// that does not exist (or confirmed with none). State is unchanged and
	// the session continues.
	ErrInvalidSelection = errors.New("invalid candidate selection")

	// ErrSceneConfirmed marks a mutating operation against a confirmed
	// scene. Only an explicit Unconfirm reopens it.
	ErrSceneConfirmed = errors.New("scene is confirmed")

	// ErrNotConfirmed marks an Unconfirm against a scene that was never
	// confirmed.
	ErrNotConfirmed = errors.New("scene is not confirmed")

	// ErrNotEdited marks a Regenerate with an unchanged prompt; there is
	// nothing to regenerate.
	ErrNotEdited = errors.New("prompt has not been edited")

	// ErrSceneBusy marks an operation against a scene whose regeneration
	// is still in flight.
	ErrSceneBusy = errors.New("scene regeneration in progress")

	// ErrUnknownScene marks a scene index outside the session.
	ErrUnknownScene = errors.New("unknown scene index")
)

// GenerationError reports a failed or timed-out video generation job.
// It is scoped to one scene and never disturbs the others.
type GenerationError struct {
	SceneIndex int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("clip generation failed for scene %d: %v", e.SceneIndex, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NotReadyError reports a finalization attempt with unconfirmed scenes
// outstanding. Missing lists their indices in ascending order.
type NotReadyError struct {
	Missing []int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("session not ready for finalization, unconfirmed scenes: %v", e.Missing)
}
