package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Equal(t, StrategySimulated, cfg.SaveStrategy)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, 1, cfg.SaveConcurrency)
	assert.Equal(t, int64(100<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "1/2/2006", cfg.DateLayout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CorsConfig.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("REQUIRE_AUTH", "false")
	t.Setenv("SAVE_STRATEGY", StrategyDownload)
	t.Setenv("SAVE_LATENCY", "5ms")
	t.Setenv("SAVE_CONCURRENCY", "4")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENV", "production")

	cfg := Load()

	assert.False(t, cfg.RequireAuth)
	assert.Equal(t, StrategyDownload, cfg.SaveStrategy)
	assert.Equal(t, 5*time.Millisecond, cfg.SaveLatency)
	assert.Equal(t, 4, cfg.SaveConcurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsConfig.AllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("REQUIRE_AUTH", "maybe")
	t.Setenv("SAVE_CONCURRENCY", "many")
	t.Setenv("SAVE_LATENCY", "soon")

	cfg := Load()

	require.True(t, cfg.RequireAuth)
	require.Equal(t, 1, cfg.SaveConcurrency)
	require.Equal(t, 100*time.Millisecond, cfg.SaveLatency)
}
