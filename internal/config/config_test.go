package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "CHEMVIS_API_URL", "CHEMVIS_REDIS_ADDR", "CHEMVIS_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url: http://127.0.0.1:8000/api")
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend:\n  base_url: http://api.local/api\ndisplay:\n  timezone: UTC\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout())
	assert.Equal(t, 8089, cfg.Server.Port)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHEMVIS_API_URL", "http://override/api")
	t.Setenv("CHEMVIS_REDIS_ADDR", "redis:6379")
	t.Setenv("CHEMVIS_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://override/api", cfg.Backend.BaseURL)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddr())
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [1, 2"},
		{"empty backend", "backend:\n  base_url: \"\"\n"},
		{"bad size", "upload:\n  max_upload_size: lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Session.MaxSessions = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Session.MaxSessions)
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := DefaultConfig()
	n, err := cfg.MaxUploadBytes()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(10_000_000))

	cfg.Upload.MaxUploadSize = ""
	n, err = cfg.MaxUploadBytes()
	require.NoError(t, err)
	assert.Zero(t, n)
}
