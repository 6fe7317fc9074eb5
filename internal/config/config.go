// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for databases (always absolute)
	LogLevel  string
	Port      int
	DevMode   bool
	Reconcile ReconcileConfig
}

// ReconcileConfig holds the tuning knobs of the reconciliation engine.
// These are explicit configuration rather than hidden constants so they can
// be tuned and tested independently.
type ReconcileConfig struct {
	// AmbiguityCap is the candidate-fill count above which a match is too
	// uncertain to auto-resolve
	AmbiguityCap int
	// ReversalTolerance is the fractional exit-volume overshoot absorbed as
	// lot-size/rounding noise before flagging a reversal (0.05 = 5%)
	ReversalTolerance float64
	// MaxCandidates bounds how many rejected candidates are reported for
	// human review on ambiguous matches
	MaxCandidates int
	// Schedule is the cron expression for background reconciliation runs
	Schedule string
	// ScheduleEnabled toggles the background job
	ScheduleEnabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RECKON_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("RECKON_PORT", 8010),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Reconcile: ReconcileConfig{
			AmbiguityCap:      getEnvAsInt("RECONCILE_AMBIGUITY_CAP", 10),
			ReversalTolerance: getEnvAsFloat("RECONCILE_REVERSAL_TOLERANCE", 0.05),
			MaxCandidates:     getEnvAsInt("RECONCILE_MAX_CANDIDATES", 3),
			Schedule:          getEnv("RECONCILE_SCHEDULE", "@every 15m"),
			ScheduleEnabled:   getEnvAsBool("RECONCILE_SCHEDULE_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Reconcile.AmbiguityCap < 1 {
		return fmt.Errorf("RECONCILE_AMBIGUITY_CAP must be at least 1, got %d", c.Reconcile.AmbiguityCap)
	}
	if c.Reconcile.ReversalTolerance < 0 {
		return fmt.Errorf("RECONCILE_REVERSAL_TOLERANCE must not be negative, got %v", c.Reconcile.ReversalTolerance)
	}
	if c.Reconcile.MaxCandidates < 1 {
		return fmt.Errorf("RECONCILE_MAX_CANDIDATES must be at least 1, got %d", c.Reconcile.MaxCandidates)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
