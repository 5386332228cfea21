package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"ad-studio/internal/ai"
	"ad-studio/internal/config"
	"ad-studio/internal/handlers"
	"ad-studio/internal/logger"
	"ad-studio/internal/media"
	"ad-studio/internal/pipeline"
	"ad-studio/internal/script"
	"ad-studio/internal/server"
	"ad-studio/internal/storage"
	"ad-studio/internal/veo"
)

func main() {
	pipelinePath := flag.String("pipeline", "config/pipeline.yaml", "Path to the pipeline config file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Logger Error: %v", err)
	}
	defer logg.Sync()

	pipe, err := config.LoadPipeline(*pipelinePath)
	if err != nil {
		logg.Fatal("pipeline config load failed", "path", *pipelinePath, "error", err)
	}

	aiService, err := ai.NewService(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("ai service init failed", "error", err)
	}

	store, err := storage.NewGCSGateway(ctx, logg)
	if err != nil {
		logg.Fatal("storage init failed", "error", err)
	}

	writer := script.NewClient(logg, aiService, pipe)
	clips := veo.NewClient(logg, aiService, store, cfg.Bucket, pipe)
	assembler := media.NewAssembler(logg, store, cfg.Bucket, pipe)
	studio := pipeline.NewStudio(logg, writer, clips, assembler)

	router := server.NewRouter(server.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(studio),
		UploadHandler:  handlers.NewUploadHandler(store, cfg.Bucket, pipe.Storage.UploadPrefix),
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	logg.Info("api listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		logg.Fatal("server stopped", "error", err)
	}
}
