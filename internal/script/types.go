package script

import "fmt"

// SceneSpec is one continuous shot of the ad. Index defines playback order
// and is never reassigned after expansion.
type SceneSpec struct {
	Index           int    `json:"index"`
	Description     string `json:"description"`
	CompiledPrompt  string `json:"compiled_prompt,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
}

// VisualElement is a recurring subject whose description must stay verbatim
// identical wherever it appears, so the video model renders it consistently.
type VisualElement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Outline is the product of script expansion: ordered scenes (not yet
// compiled into generation prompts) plus the consistency glossary.
type Outline struct {
	Scenes   []SceneSpec
	Elements []VisualElement
}

// FormatError reports an upstream model response that failed to parse as
// the structured data the contract requires. Callers must not adopt any
// part of a malformed result.
type FormatError struct {
	Stage string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: malformed model response: %v", e.Stage, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
