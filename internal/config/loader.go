package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pipeline holds the generation settings and prompt exemplars that travel
// with the project rather than the deployment (config/pipeline.yaml).
type Pipeline struct {
	LLM struct {
		Model string `yaml:"model"`
	} `yaml:"llm"`

	Script struct {
		MaxScenes     int `yaml:"max_scenes"`
		AdDurationSec int `yaml:"ad_duration_sec"`
	} `yaml:"script"`

	Veo struct {
		Model            string `yaml:"model"`
		SampleCount      int    `yaml:"sample_count"`
		AspectRatio      string `yaml:"aspect_ratio"`
		PersonGeneration string `yaml:"person_generation"`
		MinDurationSec   int    `yaml:"min_duration_sec"`
		MaxDurationSec   int    `yaml:"max_duration_sec"`
		PollIntervalSec  int    `yaml:"poll_interval_sec"`
		PollTimeoutSec   int    `yaml:"poll_timeout_sec"`
		// ExamplePrompts are the few-shot style exemplars fed verbatim to
		// the prompt compilation call.
		ExamplePrompts []string `yaml:"example_prompts"`
	} `yaml:"veo"`

	Storage struct {
		ClipPrefix      string `yaml:"clip_prefix"`
		OutputPrefix    string `yaml:"output_prefix"`
		UploadPrefix    string `yaml:"upload_prefix"`
		SignedURLTTLSec int    `yaml:"signed_url_ttl_sec"`
	} `yaml:"storage"`
}

func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	p.applyDefaults()
	return &p, nil
}

func (p *Pipeline) applyDefaults() {
	if p.LLM.Model == "" {
		p.LLM.Model = "googleai/gemini-2.0-flash"
	}
	if p.Script.MaxScenes == 0 {
		p.Script.MaxScenes = 4
	}
	if p.Script.AdDurationSec == 0 {
		p.Script.AdDurationSec = 15
	}
	if p.Veo.Model == "" {
		p.Veo.Model = "veo-2.0-generate-001"
	}
	if p.Veo.SampleCount == 0 {
		p.Veo.SampleCount = 2
	}
	if p.Veo.AspectRatio == "" {
		p.Veo.AspectRatio = "16:9"
	}
	if p.Veo.PersonGeneration == "" {
		p.Veo.PersonGeneration = "allow_adult"
	}
	if p.Veo.MinDurationSec == 0 {
		p.Veo.MinDurationSec = 5
	}
	if p.Veo.MaxDurationSec == 0 {
		p.Veo.MaxDurationSec = 8
	}
	if p.Veo.PollIntervalSec == 0 {
		p.Veo.PollIntervalSec = 10
	}
	if p.Veo.PollTimeoutSec == 0 {
		p.Veo.PollTimeoutSec = 600
	}
	if p.Storage.ClipPrefix == "" {
		p.Storage.ClipPrefix = "sessions"
	}
	if p.Storage.OutputPrefix == "" {
		p.Storage.OutputPrefix = "final"
	}
	if p.Storage.UploadPrefix == "" {
		p.Storage.UploadPrefix = "uploads"
	}
	if p.Storage.SignedURLTTLSec == 0 {
		p.Storage.SignedURLTTLSec = 3600
	}
}

func (p *Pipeline) PollInterval() time.Duration {
	return time.Duration(p.Veo.PollIntervalSec) * time.Second
}

func (p *Pipeline) PollTimeout() time.Duration {
	return time.Duration(p.Veo.PollTimeoutSec) * time.Second
}

func (p *Pipeline) SignedURLTTL() time.Duration {
	return time.Duration(p.Storage.SignedURLTTLSec) * time.Second
}

// ClampDuration forces a requested scene duration into the range the video
// model accepts. Callers should not assume their value is honored exactly.
func (p *Pipeline) ClampDuration(seconds int) int {
	if seconds < p.Veo.MinDurationSec {
		return p.Veo.MinDurationSec
	}
	if seconds > p.Veo.MaxDurationSec {
		return p.Veo.MaxDurationSec
	}
	return seconds
}
