package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assetload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_MINIO_SECRET", "s3cr3t")

	path := writeConfig(t, `
default_location: bundled
tick_interval: 5ms
workers: 3
log_level: debug
resources:
  memory_limit_bytes: 1024
  max_concurrent_fetches: 2
backends:
  bundled:
    type: local
    dir: ./assets
  streaming:
    type: minio
    endpoint: localhost:9000
    bucket: assets
    access_key: admin
    secret_key: ${TEST_MINIO_SECRET}
    cache_bytes: 4096
warn_on_release:
  - ui/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bundled", cfg.DefaultLocation)
	assert.Equal(t, 5*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"ui/"}, cfg.WarnOnRelease)

	limits := cfg.ResourceLimits()
	assert.Equal(t, int64(1024), limits.MemoryLimitBytes)
	assert.Equal(t, int64(2), limits.MaxConcurrentFetches)
	assert.Zero(t, limits.IOLimitBytesPerSec)

	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, BackendLocal, cfg.Backends["bundled"].Type)

	streaming := cfg.Backends["streaming"]
	assert.Equal(t, BackendMinIO, streaming.Type)
	assert.Equal(t, "s3cr3t", streaming.SecretKey)
	assert.Equal(t, int64(4096), streaming.CacheBytes)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("default_locaton: bundled\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_locaton")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad default", "default_location: cloud\n", "default_location"},
		{"zero tick", "tick_interval: 0s\n", "tick_interval"},
		{"negative workers", "workers: -1\n", "workers"},
		{"bad log level", "log_level: loud\n", "log_level"},
		{"negative resources", "resources:\n  memory_limit_bytes: -1\n", "resources"},
		{"unknown location", "backends:\n  cloud:\n    type: local\n    dir: x\n", "unknown location"},
		{"unknown type", "backends:\n  bundled:\n    type: ftp\n", "unknown type"},
		{"local without dir", "backends:\n  persistent:\n    type: local\n", "requires dir"},
		{"fs without dir", "backends:\n  bundled:\n    type: fs\n", "requires dir"},
		{"s3 without bucket", "backends:\n  streaming:\n    type: s3\n", "requires bucket"},
		{"minio without endpoint", "backends:\n  streaming:\n    type: minio\n    bucket: b\n", "requires endpoint"},
		{"negative cache", "backends:\n  streaming:\n    type: s3\n    bucket: b\n    cache_bytes: -1\n", "cache_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
