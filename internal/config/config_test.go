package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	t.Setenv("CALTRACK_BASE_URL", "")
	t.Setenv("CALTRACK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTitle, cfg.DefaultTitle)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	t.Setenv("CALTRACK_BASE_URL", "")
	t.Setenv("CALTRACK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "base_url: http://events.local:9000/\nrequest_timeout: 3s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://events.local:9000", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval)
	assert.Equal(t, DefaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, DefaultListen, cfg.Server.Listen)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CALTRACK_BASE_URL", "http://override:1234")
	t.Setenv("CALTRACK_LOG_LEVEL", "debug")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file:1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override:1234", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("CALTRACK_BASE_URL", "")
	t.Setenv("CALTRACK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.DefaultTitle = "Focus"
	cfg.Timezone = "UTC"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Focus", loaded.DefaultTitle)
	assert.Equal(t, time.UTC, loaded.Location())
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
