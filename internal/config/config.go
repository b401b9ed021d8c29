// Package config loads the spar YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the config file when no path is given explicitly.
const EnvPath = "SPAR_CONFIG"

// Config is the whole file.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Update UpdateConfig `yaml:"update"`
	Tess   TessConfig   `yaml:"tess"`
	Kernel KernelConfig `yaml:"kernel"`
	Script ScriptConfig `yaml:"script"`
	Store  StoreConfig  `yaml:"store"`
	Undo   UndoConfig   `yaml:"undo"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type UpdateConfig struct {
	// Full runs walks that also tessellate.
	Full bool `yaml:"full"`
	// Immediate runs a walk as soon as a device edit commits.
	Immediate bool `yaml:"immediate"`
}

// TessConfig overrides the tessellation of new geoms. Zero keeps the kind
// defaults.
type TessConfig struct {
	U int `yaml:"u"`
	W int `yaml:"w"`
}

type KernelConfig struct {
	// Cells is the marching-cubes resolution along the longest axis.
	Cells int `yaml:"cells"`
}

type ScriptConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type UndoConfig struct {
	Depth int `yaml:"depth"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Update: UpdateConfig{Full: true, Immediate: true},
		Kernel: KernelConfig{Cells: 64},
		Script: ScriptConfig{Timeout: 2 * time.Second},
		Store:  StoreConfig{Path: "spar.db"},
		Undo:   UndoConfig{Depth: 100},
	}
}

// Path resolves the config file: explicit wins, then SPAR_CONFIG. An
// empty result means no file.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvPath)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as YAML.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	if c.Tess.U != 0 && (c.Tess.U < 2 || c.Tess.U > 1000) {
		return fmt.Errorf("tess.u %d: want 2..1000", c.Tess.U)
	}
	if c.Tess.W != 0 && (c.Tess.W < 5 || c.Tess.W > 1001) {
		return fmt.Errorf("tess.w %d: want 5..1001", c.Tess.W)
	}
	if c.Kernel.Cells < 8 {
		return fmt.Errorf("kernel.cells %d: want at least 8", c.Kernel.Cells)
	}
	if c.Script.Timeout <= 0 {
		return fmt.Errorf("script.timeout %s: must be positive", c.Script.Timeout)
	}
	if c.Undo.Depth < 1 {
		return fmt.Errorf("undo.depth %d: want at least 1", c.Undo.Depth)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q: want debug, info, warn or error", s)
}

// Logger builds the slog logger the config asks for, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
