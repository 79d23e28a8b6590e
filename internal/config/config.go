// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/replica/internal/scheduler"
)

// Config holds process configuration
type Config struct {
	DataDir         string // Directory for the runs database (always absolute)
	Port            int
	LogLevel        string
	DevMode         bool
	ModelConfig     string // Path to the model YAML
	RefreshSchedule string // Cron schedule (five or six fields); empty disables scheduled refreshes
	KeepRuns        int    // Stored runs kept after each refresh; 0 keeps everything
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("REPLICA_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("REPLICA_PORT", 8001),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		ModelConfig:     getEnv("REPLICA_MODEL_CONFIG", "model.yaml"),
		RefreshSchedule: os.Getenv("REPLICA_REFRESH_SCHEDULE"),
		KeepRuns:        getEnvAsInt("REPLICA_KEEP_RUNS", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the process configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, ValidationError{Field: "REPLICA_PORT", Message: fmt.Sprintf("invalid port %d", c.Port)})
	}
	if c.ModelConfig == "" {
		errs = append(errs, ValidationError{Field: "REPLICA_MODEL_CONFIG", Message: "model config path is required"})
	}
	if c.KeepRuns < 0 {
		errs = append(errs, ValidationError{Field: "REPLICA_KEEP_RUNS", Message: "must be >= 0"})
	}
	if c.RefreshSchedule != "" {
		if _, err := scheduler.Parser.Parse(c.RefreshSchedule); err != nil {
			errs = append(errs, ValidationError{Field: "REPLICA_REFRESH_SCHEDULE", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
