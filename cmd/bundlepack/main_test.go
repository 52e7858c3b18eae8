package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetload/bundle"
	"github.com/hupe1980/assetload/config"
)

func TestPackInspectLoad(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "fonts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "fonts", "arial.ttf"), []byte("glyphs glyphs glyphs glyphs"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "readme.txt"), []byte("hello"), 0o600))

	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	out := filepath.Join(assets, "ui.bundle")

	err := run(t.Context(), []string{
		"pack", "-o", out, "-c", "zstd", "--base", src,
		filepath.Join(src, "fonts", "arial.ttf"),
		filepath.Join(src, "readme.txt"),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	m, err := bundle.ReadManifest(data)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "fonts/arial.ttf", m.Entries[0].Name)
	assert.Equal(t, "readme.txt", m.Entries[1].Name)

	require.NoError(t, run(t.Context(), []string{"inspect", out}))

	cfgPath := filepath.Join(dir, "assetload.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
default_location: bundled
tick_interval: 1ms
log_level: error
backends:
  bundled:
    type: fs
    dir: `+assets+`
`), 0o600))

	require.NoError(t, run(t.Context(), []string{"load", "--config", cfgPath, "ui.bundle"}))
	require.Error(t, run(t.Context(), []string{"load", "--config", cfgPath, "missing.bundle"}))
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"unpack"}},
		{"pack without output", []string{"pack", "a.txt"}},
		{"pack without inputs", []string{"pack", "-o", "x.bundle"}},
		{"pack bad compression", []string{"pack", "-o", "x.bundle", "-c", "brotli", "a.txt"}},
		{"inspect without file", []string{"inspect"}},
		{"load without config", []string{"load", "a.bundle"}},
		{"load bad mode", []string{"load", "--config", "c.yaml", "--mode", "eager", "a.bundle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, run(t.Context(), tt.args))
		})
	}
}

func TestRun_Help(t *testing.T) {
	require.NoError(t, run(t.Context(), nil))
	require.NoError(t, run(t.Context(), []string{"help"}))
}

func TestOpenStore_Unknown(t *testing.T) {
	_, err := openStore(t.Context(), config.BackendConfig{Type: "ftp"})
	require.Error(t, err)
}
