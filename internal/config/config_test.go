package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("REDIS_STATS_TTL", "")
	t.Setenv("PERSISTENCE_MAX_ATTEMPTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 30*time.Second, cfg.Redis.StatsTTL)
	assert.Equal(t, 3, cfg.Persistence.MaxAttempts)
	assert.Equal(t, DefaultReportsConfig().MaxPageSize, cfg.Reports.MaxPageSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_STATS_TTL", "5s")
	t.Setenv("PERSISTENCE_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("REPORTS_SUMMARY_PREVIEW_LENGTH", "80")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 5*time.Second, cfg.Redis.StatsTTL)
	assert.Equal(t, 3, cfg.Persistence.MaxAttempts)
	assert.Equal(t, 80, cfg.Reports.SummaryPreviewLength)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_DB")
}

func TestAppConfigHelpers(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "8080", Env: "Production"}
	assert.Equal(t, "127.0.0.1:8080", app.Addr())
	assert.True(t, app.IsProduction())
	assert.Zero(t, app.RequestTimeout())

	app.Env = "staging"
	app.RequestTimeoutSeconds = 15
	assert.False(t, app.IsProduction())
	assert.Equal(t, 15*time.Second, app.RequestTimeout())
}
