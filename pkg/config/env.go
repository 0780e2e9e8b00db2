package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the YAML configuration
const (
	EnvConfigPath = "SKULLDETECT_CONFIG"
	EnvLogLevel   = "SKULLDETECT_LOG_LEVEL"
	EnvNumCores   = "SKULLDETECT_CORES"
	EnvDatabase   = "SKULLDETECT_DB"
	EnvPreviewDir = "SKULLDETECT_PREVIEW_DIR"
)

// LoadDotEnv loads variables from a .env file in the working directory.
// A missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ApplyEnv overrides configuration values from SKULLDETECT_* variables
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Output.LogLevel = v
	}
	if v := os.Getenv(EnvNumCores); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvNumCores, v, err)
		}
		cfg.Batch.NumCores = n
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Output.Database = v
	}
	if v := os.Getenv(EnvPreviewDir); v != "" {
		cfg.Output.PreviewDir = v
	}
	return nil
}
