package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LLM_API_KEY", "OPENROUTER_API_KEY", "DEEPSEEK_API_KEY", "DB_DRIVER", "LLM_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Empty(t, cfg.LLMAPIKey)
	assert.Equal(t, 2048, cfg.LLMMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, []string{"https://*", "http://*"}, cfg.CORSAllowedOrigins)
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "legacy-key")

	assert.Equal(t, "legacy-key", Load().LLMAPIKey)

	t.Setenv("LLM_API_KEY", "primary-key")
	assert.Equal(t, "primary-key", Load().LLMAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 2048, cfg.LLMMaxTokens)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Berlin"}
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}
