package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KB_API_BASE_URL", "http://localhost:8000")
	t.Setenv("RELOAD_DELAY_MS", "")
	t.Setenv("OTEL_ENABLED", "")

	cfg := Load()

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, time.Second, cfg.Console.ReloadDelay)
	assert.False(t, cfg.Infra.OtelEnabled)
	assert.Equal(t, "kb_console", cfg.Console.CookieName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KB_API_BASE_URL", "http://rag.internal:9000")
	t.Setenv("KB_API_TIMEOUT_SECONDS", "5")
	t.Setenv("RELOAD_DELAY_MS", "250")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "http://rag.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Console.ReloadDelay)
	assert.True(t, cfg.Infra.OtelEnabled)
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("KB_TEST_INT", "not-a-number")
	assert.Equal(t, 42, getEnvAsInt("KB_TEST_INT", 42))
}
