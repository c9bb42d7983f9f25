package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "SESSION_KEY", "QUOTE_MAX_AGE_SECONDS", "QUOTE_TIMEOUT_SECONDS", "REFRESH_INTERVAL_SECONDS", "FETCH_CONCURRENCY"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.UseInMemoryStore)
	assert.Equal(t, "default", cfg.SessionKey)
	assert.Equal(t, 60*time.Second, cfg.QuoteMaxAge)
	assert.Equal(t, 10*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, 60*time.Second, cfg.RefreshInterval)
	assert.Equal(t, int64(4), cfg.FetchConcurrency)
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/networth")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "30")
	t.Setenv("QUOTE_TIMEOUT_SECONDS", "soon")
	t.Setenv("FETCH_CONCURRENCY", "-2")
	cfg := Load()

	assert.False(t, cfg.UseInMemoryStore)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, int64(4), cfg.FetchConcurrency)
}
