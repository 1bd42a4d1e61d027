package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/statement-converter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-3-flash-preview", cfg.GeminiModel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ExportBucket)
	assert.ErrorIs(t, cfg.Validate(), config.ErrMissingAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("EXPORT_BUCKET", "gs://relatorios/exports")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "gs://relatorios/exports", cfg.ExportBucket)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			GeminiAPIKey:   "k",
			MaxUploadBytes: 1,
			WorkerCount:    1,
			RateLimitRPS:   1,
			RateLimitBurst: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"no upload limit", func(c *config.Config) { c.MaxUploadBytes = 0 }},
		{"no workers", func(c *config.Config) { c.WorkerCount = 0 }},
		{"negative queue", func(c *config.Config) { c.QueueSize = -1 }},
		{"no rate", func(c *config.Config) { c.RateLimitRPS = 0 }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STATEMENT_CONVERTER_TEST_VAR=from-file\nHTTP_PORT=1111\n"), 0o600))

	t.Setenv("HTTP_PORT", "2222")
	os.Unsetenv("STATEMENT_CONVERTER_TEST_VAR")
	t.Cleanup(func() { os.Unsetenv("STATEMENT_CONVERTER_TEST_VAR") })

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "from-file", os.Getenv("STATEMENT_CONVERTER_TEST_VAR"))
	assert.Equal(t, "2222", os.Getenv("HTTP_PORT"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "none.env")))
}
