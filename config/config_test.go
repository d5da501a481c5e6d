package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL.Duration)
	assert.Equal(t, 10*time.Second, cfg.Screener.Timeout.Duration)
	assert.Equal(t, "@every 15s", cfg.Refresh.Schedule)
	assert.Equal(t, "default", cfg.Holdings.Source)
	assert.Equal(t, "none", cfg.Events.Sink)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
environment = "production"

[server]
port = "8080"

[screener]
base_url = "http://screener.local"
timeout = "5s"
requests_per_second = 2.5

[cache]
ttl = "1m"

[holdings]
source = "xlsx"
file = "holdings.xlsx"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://screener.local", cfg.Screener.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Screener.Timeout.Duration)
	assert.Equal(t, 2.5, cfg.Screener.RequestsPerSecond)
	assert.Equal(t, 45*time.Second, cfg.Cache.TTL.Duration)
	assert.Equal(t, "xlsx", cfg.Holdings.Source)
	assert.Equal(t, "holdings.xlsx", cfg.Holdings.File)
}

func TestLoad_InvalidDurationEnv(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PORTFOLIO_TEST_KEY", "")
	assert.Equal(t, "fallback", GetEnv("PORTFOLIO_TEST_KEY", "fallback"))

	t.Setenv("PORTFOLIO_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnv("PORTFOLIO_TEST_KEY", "fallback"))
}

func TestLoad_NoticesLoggedOnceLoggerIsSet(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())

	cfg.LogNotices()
	entries := logs.FilterMessage("No config file, using defaults").All()
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].ContextMap()["path"])

	cfg.LogNotices()
	assert.Equal(t, 1, logs.Len())
}
