package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the deployment-level configuration read from the environment.
type Config struct {
	ProjectID      string
	Location       string
	GoogleGenAIKey string
	Bucket         string
	Port           string
	LogMode        string
}

// LoadConfig reads .env and validates required variables
func LoadConfig() (*Config, error) {
	// Load .env file (ignore error if file is missing, e.g., in production)
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:      os.Getenv("GCLOUD_PROJECT_ID"),
		Location:       os.Getenv("GCLOUD_LOCATION"),
		GoogleGenAIKey: os.Getenv("GOOGLE_GENAI_API_KEY"),
		Bucket:         os.Getenv("AD_STUDIO_BUCKET"),
		Port:           os.Getenv("PORT"),
		LogMode:        os.Getenv("LOG_MODE"),
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("CRITICAL: GCLOUD_PROJECT_ID is missing")
	}
	if cfg.Location == "" {
		return nil, fmt.Errorf("CRITICAL: GCLOUD_LOCATION is missing")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("CRITICAL: AD_STUDIO_BUCKET is missing")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	return cfg, nil
}
