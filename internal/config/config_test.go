package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvLogLevel, EnvWorkers, EnvMaxBatch, EnvFillThreshold, EnvMinMargin, EnvSheetVersion} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, Default(), FromEnv())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvMaxBatch, " 50 ")
	t.Setenv(EnvFillThreshold, "0.5")
	t.Setenv(EnvMinMargin, "0.2")
	t.Setenv(EnvSheetVersion, "C")

	assert.Equal(t, Config{
		LogLevel:      "debug",
		Workers:       8,
		MaxBatch:      50,
		FillThreshold: 0.5,
		MinMargin:     0.2,
		SheetVersion:  "C",
	}, FromEnv())
}

func TestFromEnv_MalformedKeepsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvWorkers, "many")
	t.Setenv(EnvMaxBatch, "-3")
	t.Setenv(EnvFillThreshold, "half")

	cfg := FromEnv()
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 500, cfg.MaxBatch)
	assert.Equal(t, 0.45, cfg.FillThreshold)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even to "".
	require.NoError(t, os.Unsetenv(EnvWorkers))
	require.NoError(t, os.Unsetenv(EnvSheetVersion))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OMR_WORKERS=2\nOMR_SHEET_VERSION=B\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv(EnvWorkers)
		_ = os.Unsetenv(EnvSheetVersion)
	})

	cfg := Load()
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "B", cfg.SheetVersion)
}
