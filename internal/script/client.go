package script

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"ad-studio/internal/config"
	"ad-studio/internal/logger"
)

// TextGenerator is the slice of the AI service the script clients need.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Client turns an ad idea into compiled per-scene generation prompts via
// two model calls: expansion (scenes + glossary) and compilation (one
// cinematic prompt per scene).
type Client struct {
	log      *logger.Logger
	gen      TextGenerator
	pipeline *config.Pipeline
}

func NewClient(log *logger.Logger, gen TextGenerator, pipeline *config.Pipeline) *Client {
	return &Client{
		log:      log.With("service", "script"),
		gen:      gen,
		pipeline: pipeline,
	}
}

type rawScene struct {
	SceneNumber      int    `json:"scene_number"`
	SceneDurationSec int    `json:"scene_duration_sec"`
	SceneDescription string `json:"scene_description"`
}

type rawOutline struct {
	Scenes         []rawScene      `json:"scenes"`
	VisualElements []VisualElement `json:"visual_elements"`
}

// Expand asks the model to turn the idea into an ordered scene list plus
// the visual-consistency glossary. Scene indices are assigned here, once,
// and are never renumbered downstream.
func (c *Client) Expand(ctx context.Context, idea string) (Outline, error) {
	if strings.TrimSpace(idea) == "" {
		return Outline{}, fmt.Errorf("ad idea must not be empty")
	}

	prompt := scriptPrompt(idea, c.pipeline.Script.MaxScenes, c.pipeline.Script.AdDurationSec)
	c.log.Info("expanding ad idea into scenes", "max_scenes", c.pipeline.Script.MaxScenes)

	text, err := c.gen.GenerateText(ctx, c.pipeline.LLM.Model, prompt)
	if err != nil {
		return Outline{}, fmt.Errorf("script expansion call: %w", err)
	}

	var raw rawOutline
	if err := json.Unmarshal(stripFences(text), &raw); err != nil {
		return Outline{}, &FormatError{Stage: "script expansion", Err: err}
	}
	if len(raw.Scenes) == 0 {
		return Outline{}, &FormatError{Stage: "script expansion", Err: fmt.Errorf("response contains no scenes")}
	}

	sort.SliceStable(raw.Scenes, func(i, j int) bool {
		return raw.Scenes[i].SceneNumber < raw.Scenes[j].SceneNumber
	})

	out := Outline{Elements: raw.VisualElements}
	for i, s := range raw.Scenes {
		if strings.TrimSpace(s.SceneDescription) == "" {
			return Outline{}, &FormatError{Stage: "script expansion", Err: fmt.Errorf("scene %d has no description", s.SceneNumber)}
		}
		out.Scenes = append(out.Scenes, SceneSpec{
			Index:           i,
			Description:     s.SceneDescription,
			DurationSeconds: s.SceneDurationSec,
		})
	}
	c.log.Info("ad idea expanded", "scenes", len(out.Scenes), "elements", len(out.Elements))
	return out, nil
}

type rawCompiled struct {
	Prompt        string `json:"prompt"`
	SceneDuration int    `json:"scene_duration"`
}

// Compile produces one fully-specified generation prompt per scene. Order
// and durations are preserved from the outline; only the prompt text is new.
// The full glossary must be supplied so recurring elements keep identical
// descriptions across scenes.
func (c *Client) Compile(ctx context.Context, outline Outline) ([]SceneSpec, error) {
	if len(outline.Scenes) == 0 {
		return nil, fmt.Errorf("outline has no scenes to compile")
	}

	prompt := compilePrompt(outline, c.pipeline.Veo.ExamplePrompts)
	c.log.Info("compiling generation prompts", "scenes", len(outline.Scenes))

	text, err := c.gen.GenerateText(ctx, c.pipeline.LLM.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("prompt compilation call: %w", err)
	}

	var raw []rawCompiled
	if err := json.Unmarshal(stripFences(text), &raw); err != nil {
		return nil, &FormatError{Stage: "prompt compilation", Err: err}
	}
	if len(raw) != len(outline.Scenes) {
		return nil, &FormatError{
			Stage: "prompt compilation",
			Err:   fmt.Errorf("expected %d prompts, got %d", len(outline.Scenes), len(raw)),
		}
	}

	compiled := make([]SceneSpec, len(outline.Scenes))
	for i, s := range outline.Scenes {
		if strings.TrimSpace(raw[i].Prompt) == "" {
			return nil, &FormatError{Stage: "prompt compilation", Err: fmt.Errorf("scene %d prompt is empty", i)}
		}
		spec := s
		spec.CompiledPrompt = raw[i].Prompt
		compiled[i] = spec
	}
	return compiled, nil
}

// stripFences removes a leading/trailing markdown code fence the model may
// wrap around its JSON despite instructions.
func stripFences(text string) []byte {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return []byte(strings.TrimSpace(s))
}
