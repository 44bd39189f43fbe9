// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the run history database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Forecasting defaults applied when a request leaves them unset.
	Workers   int // 0 resolves to the number of logical CPUs
	Threshold float64
	Tolerance float64

	RunRetentionDays int    // 0 keeps runs forever
	CleanupSchedule  string // cron expression for the retention job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("KO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Workers:          getEnvAsInt("KO_WORKERS", 0),
		Threshold:        getEnvAsFloat("KO_THRESHOLD", 0.95),
		Tolerance:        getEnvAsFloat("KO_TOLERANCE", 1e-4),
		RunRetentionDays: getEnvAsInt("KO_RUN_RETENTION_DAYS", 30),
		CleanupSchedule:  getEnv("KO_CLEANUP_SCHEDULE", "@daily"),
	}

	if cfg.Workers == 0 {
		cfg.Workers = logicalCPUs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be in 1..65535, got %d", c.Port)
	}
	if c.Workers < 0 {
		return fmt.Errorf("KO_WORKERS must be >= 0, got %d", c.Workers)
	}
	if !(c.Threshold > 0 && c.Threshold < 1) {
		return fmt.Errorf("KO_THRESHOLD must be in (0, 1), got %g", c.Threshold)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("KO_TOLERANCE must be >= 0, got %g", c.Tolerance)
	}
	if c.RunRetentionDays < 0 {
		return fmt.Errorf("KO_RUN_RETENTION_DAYS must be >= 0, got %d", c.RunRetentionDays)
	}
	if c.CleanupSchedule == "" {
		return fmt.Errorf("KO_CLEANUP_SCHEDULE must not be empty")
	}
	return nil
}

// DatabasePath returns the path of the run history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "forecasts.db")
}

// RunRetention returns the retention period of stored runs.
func (c *Config) RunRetention() time.Duration {
	return time.Duration(c.RunRetentionDays) * 24 * time.Hour
}

func logicalCPUs() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

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
