// Package config loads runtime settings from TOML or JSON files.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	thunkruntime "github.com/wippyai/thunk-runtime"
	"github.com/wippyai/thunk-runtime/engine"
	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/runtime"
)

// LevelOff disables logging.
const LevelOff = "off"

// Config holds the settings of one runtime and its wasm engine.
type Config struct {
	LogLevel    string            `toml:"log-level"`
	Engine      Engine            `toml:"engine"`
	MemoryLimit int64             `toml:"memory-limit"`
	MaxValues   int               `toml:"max-values"`
	GCPercent   int               `toml:"gc-percent"`
	Mode        thunkruntime.Mode `toml:"mode"`
}

// Engine configures module loading.
type Engine struct {
	MemoryLimitPages uint32 `toml:"memory-limit-pages"`
	WASI             bool   `toml:"wasi"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Mode:     thunkruntime.ModeManaged,
		LogLevel: "warn",
	}
}

// Load reads a .toml or .json file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	return Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Parse decodes data in the given format ("toml" or "json") over the
// defaults and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(format) {
	case "toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.ParseFailed("toml config", err)
		}
	case "json":
		if err := cfg.parseJSON(data); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Unsupported(errors.PhaseConfig, fmt.Sprintf("config format %q", format))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.ParseFailed("json config", fmt.Errorf("invalid json: %q", data))
	}
	doc := gjson.ParseBytes(data)

	if v := doc.Get("mode"); v.Exists() {
		if err := c.Mode.UnmarshalText([]byte(v.String())); err != nil {
			return errors.ParseFailed("json config", err)
		}
	}
	if v := doc.Get("max-values"); v.Exists() {
		c.MaxValues = int(v.Int())
	}
	if v := doc.Get("gc-percent"); v.Exists() {
		c.GCPercent = int(v.Int())
	}
	if v := doc.Get("memory-limit"); v.Exists() {
		c.MemoryLimit = v.Int()
	}
	if v := doc.Get("log-level"); v.Exists() {
		c.LogLevel = v.String()
	}
	if v := doc.Get("engine.memory-limit-pages"); v.Exists() {
		n := v.Int()
		if n < 0 || n > math.MaxUint32 {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("engine", "memory-limit-pages").
				Value(v.Raw).
				Detail("page limit %s out of range", v.Raw).
				Build()
		}
		c.Engine.MemoryLimitPages = uint32(n)
	}
	if v := doc.Get("engine.wasi"); v.Exists() {
		c.Engine.WASI = v.Bool()
	}
	return nil
}

// Validate rejects unknown modes and log levels and negative limits.
func (c *Config) Validate() error {
	switch c.Mode {
	case thunkruntime.ModeManaged, thunkruntime.ModeManual, thunkruntime.ModeArena:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("mode").
			Detail("unknown mode %s", c.Mode).
			Build()
	}
	if c.MaxValues < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("max-values").
			Value(c.MaxValues).
			Detail("negative limit %d", c.MaxValues).
			Build()
	}
	if c.MemoryLimit < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("memory-limit").
			Value(c.MemoryLimit).
			Detail("negative limit %d", c.MemoryLimit).
			Build()
	}
	if _, err := c.level(); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log-level").
			Cause(err).
			Detail("unknown log level %q", c.LogLevel).
			Build()
	}
	return nil
}

func (c *Config) level() (zapcore.Level, error) {
	if c.LogLevel == "" || strings.EqualFold(c.LogLevel, LevelOff) {
		return zapcore.InvalidLevel, nil
	}
	return zapcore.ParseLevel(c.LogLevel)
}

// Runtime returns the runtime configuration.
func (c *Config) Runtime() runtime.Config {
	return runtime.Config{
		Mode:      c.Mode,
		MaxValues: c.MaxValues,
		GC: runtime.GCConfig{
			Percent:     c.GCPercent,
			MemoryLimit: c.MemoryLimit,
		},
	}
}

// EngineConfig returns the module loading configuration.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		MemoryLimitPages: c.Engine.MemoryLimitPages,
		WASI:             c.Engine.WASI,
	}
}

// Logger builds a logger for LogLevel: a development logger at debug, a
// production logger otherwise and a no-op logger when logging is off.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	if lvl == zapcore.InvalidLevel {
		return zap.NewNop(), nil
	}

	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
