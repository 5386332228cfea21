package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"google.golang.org/genai"

	"ad-studio/internal/config"
	"ad-studio/internal/logger"
)

// Service owns the two hosted-model clients: genkit for text generation
// (script expansion, prompt compilation) and the genai Veo client for
// video generation.
type Service struct {
	log       *logger.Logger
	g         *genkit.Genkit
	veoClient *genai.Client
}

func NewService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Service, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(
		&googlegenai.GoogleAI{APIKey: cfg.GoogleGenAIKey},
		&googlegenai.VertexAI{ProjectID: cfg.ProjectID, Location: cfg.Location},
	))

	veoClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Veo client: %w", err)
	}

	return &Service{
		log:       log.With("service", "ai"),
		g:         g,
		veoClient: veoClient,
	}, nil
}

func (s *Service) GenerateText(ctx context.Context, modelName string, prompt string) (string, error) {
	return genkit.GenerateText(ctx, s.g,
		ai.WithModelName(modelName),
		ai.WithPrompt(prompt),
	)
}

// GenerateVideos submits one generation job and polls until the provider
// reports terminal status. The caller bounds the wait through ctx; once the
// deadline passes the poll stops, though the provider-side job cannot be
// aborted. All generated samples are returned, never a partial set.
func (s *Service) GenerateVideos(ctx context.Context, jobID, modelName, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig, pollInterval time.Duration) ([]*genai.Video, error) {
	cleanName := strings.TrimPrefix(modelName, "vertexai/")

	op, err := s.veoClient.Models.GenerateVideos(ctx, cleanName, prompt, image, cfg)
	if err != nil {
		return nil, fmt.Errorf("start failed: %w", err)
	}
	s.log.Info("video generation started", "job", jobID, "operation", op.Name)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("poll aborted for %s: %w", op.Name, ctx.Err())
		case <-ticker.C:
			op, err = s.veoClient.Operations.GetVideosOperation(ctx, op, nil)
			if err != nil {
				return nil, fmt.Errorf("check failed: %w", err)
			}
			if !op.Done {
				continue
			}
			if op.Error != nil {
				return nil, fmt.Errorf("generation error: %v", op.Error)
			}
			if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
				return nil, fmt.Errorf("no video found in response")
			}
			videos := make([]*genai.Video, 0, len(op.Response.GeneratedVideos))
			for _, gv := range op.Response.GeneratedVideos {
				if gv.Video == nil {
					return nil, fmt.Errorf("video object is nil")
				}
				videos = append(videos, gv.Video)
			}
			s.log.Info("video generation complete", "job", jobID, "samples", len(videos))
			return videos, nil
		}
	}
}
