package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spar.yaml")
	data := []byte(`
log:
  level: debug
  format: json
update:
  immediate: false
script:
  timeout: 500ms
undo:
  depth: 7
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Update.Immediate)
	assert.True(t, cfg.Update.Full)
	assert.Equal(t, 500*time.Millisecond, cfg.Script.Timeout)
	assert.Equal(t, 7, cfg.Undo.Depth)
	assert.Equal(t, 64, cfg.Kernel.Cells)
	assert.Equal(t, "spar.db", cfg.Store.Path)
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spar.yaml")
	cfg := Default()
	cfg.Tess = TessConfig{U: 12, W: 17}
	require.NoError(t, Write(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"tess u", func(c *Config) { c.Tess.U = 1 }},
		{"tess w", func(c *Config) { c.Tess.W = 2000 }},
		{"cells", func(c *Config) { c.Kernel.Cells = 2 }},
		{"timeout", func(c *Config) { c.Script.Timeout = 0 }},
		{"undo", func(c *Config) { c.Undo.Depth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("undo:\n  depth: -1\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log: [\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "/etc/spar.yaml")
	assert.Equal(t, "/etc/spar.yaml", Path(""))
	assert.Equal(t, "mine.yaml", Path("mine.yaml"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
