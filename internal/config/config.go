// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvLogLevel      = "OMR_LOG_LEVEL"
	EnvWorkers       = "OMR_WORKERS"
	EnvMaxBatch      = "OMR_MAX_BATCH"
	EnvFillThreshold = "OMR_FILL_THRESHOLD"
	EnvMinMargin     = "OMR_MIN_MARGIN"
	EnvSheetVersion  = "OMR_SHEET_VERSION"
)

// Config holds the runtime settings shared by omr-mcp and omr-grade.
type Config struct {
	LogLevel      string
	Workers       int
	MaxBatch      int
	FillThreshold float64
	MinMargin     float64
	SheetVersion  string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel:      "info",
		Workers:       4,
		MaxBatch:      500,
		FillThreshold: 0.45,
		MinMargin:     0.12,
		SheetVersion:  "A",
	}
}

// Load reads .env from the working directory when present, then the OMR_*
// variables. Unset or malformed values keep their defaults. Variables that
// are already set in the environment take precedence over .env.
func Load() Config {
	// A missing .env is the normal case.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the OMR_* variables without touching .env.
func FromEnv() Config {
	d := Default()
	return Config{
		LogLevel:      strings.ToLower(getEnv(EnvLogLevel, d.LogLevel)),
		Workers:       getEnvAsPositiveInt(EnvWorkers, d.Workers),
		MaxBatch:      getEnvAsPositiveInt(EnvMaxBatch, d.MaxBatch),
		FillThreshold: getEnvAsFloat(EnvFillThreshold, d.FillThreshold),
		MinMargin:     getEnvAsFloat(EnvMinMargin, d.MinMargin),
		SheetVersion:  getEnv(EnvSheetVersion, d.SheetVersion),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsPositiveInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
