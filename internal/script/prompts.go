package script

import (
	"fmt"
	"strings"
)

// scriptPrompt asks the model for a scene-by-scene ad script plus the
// visual-elements glossary, as strict JSON.
func scriptPrompt(adIdea string, maxScenes, adDurationSec int) string {
	return fmt.Sprintf(`**Role:**
You are an expert AI visual storyteller and director for text-to-video generation.
Your expertise is creating cinematic, narratively coherent shot sequences described
with exhaustive visual detail.

**Core Task:**
Generate a JSON object containing a "scenes" array. Each object represents one
single, continuous camera shot of an advertisement based on the input ad idea.
Target a total runtime of about %d seconds across at most %d scenes.

**Input Ad Idea:**
`+"`%s`"+`

**Rules:**
1. Every shot must move the idea forward: reveal something, shift emotion, or
   heighten interest. No generic or repetitive shots.
2. Each scene_description is one continuous, uncut camera shot written as a
   single flowing paragraph. Fluid camera moves (pans, zooms, dolly shots) are
   fine as long as they are achievable within one shot.
3. Assume the video model sees only what you describe. Weave style, subjects,
   environment, action, framing, camera motion, and lighting into the paragraph.
4. Maintain a separate "visual_elements" list. Each element has a short unique
   "name" and a precise, richly detailed, unchanging "description" covering
   size, shape, color, material, texture, lighting, and mood, so the element
   renders identically in every scene where it appears.

**Output JSON structure (output ONLY the JSON):**
{
  "scenes": [
    {"scene_number": 1, "scene_duration_sec": 3, "scene_description": "..."},
    {"scene_number": 2, "scene_duration_sec": 5, "scene_description": "..."}
  ],
  "visual_elements": [
    {"name": "Element Name", "description": "Fixed, detailed visual description"}
  ]
}`, adDurationSec, maxScenes, adIdea)
}

// compilePrompt asks the model to translate each scene into a standalone
// video-generation prompt, re-describing every recurring element verbatim
// from the glossary.
func compilePrompt(outline Outline, examplePrompts []string) string {
	var scenes strings.Builder
	for _, s := range outline.Scenes {
		fmt.Fprintf(&scenes, "scene %d (%ds): %s\n", s.Index+1, s.DurationSeconds, s.Description)
	}
	var elements strings.Builder
	for _, e := range outline.Elements {
		fmt.Fprintf(&elements, "- %s: %s\n", e.Name, e.Description)
	}
	examples := "(none provided)"
	if len(examplePrompts) > 0 {
		examples = strings.Join(examplePrompts, "\n---\n")
	}

	return fmt.Sprintf(`**Role:**
You are an expert cinematic prompt writer for generative video AI. Convert the
structured script below into one generation prompt per scene.

**Key instructions:**
1. Each prompt must stand alone: the video model sees no other scene. Re-describe
   every recurring element, setting, and mood the scene needs.
2. If an element from the glossary appears in a scene, its description must be
   reproduced word-for-word identical in that scene's prompt.
3. Fill visual gaps: camera angle, movement, composition, lighting, environment,
   weather, focus. Blend everything into one continuous cinematic paragraph; do
   not output bullet points.
4. Keep prompts renderable: avoid overloading a single prompt with stacked
   actions or transitions.
5. Follow the structure, flow, and tone of the example prompts precisely.

### Example prompts (style guide):
%s

**Scenes:**
%s
**Visual elements glossary:**
%s
**Required output (output ONLY the JSON array, one entry per scene, same order,
scene_duration echoed unchanged):**
[
  {"prompt": "Detailed prompt for scene 1...", "scene_duration": 3},
  {"prompt": "Detailed prompt for scene 2...", "scene_duration": 5}
]`, examples, scenes.String(), elements.String())
}
