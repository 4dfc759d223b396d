// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvLogLevel    = "TALITUNES_LOG_LEVEL"
	EnvAudioEngine = "TALITUNES_AUDIO_ENGINE"
	EnvHTTPAddr    = "TALITUNES_HTTP_ADDR"
)

// Config represents the application configuration.
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Audio   AudioConfig   `yaml:"audio"`
	Library LibraryConfig `yaml:"library"`
	Log     LogConfig     `yaml:"log"`
	HTTP    HTTPConfig    `yaml:"http"`
	Hooks   HooksConfig   `yaml:"hooks"`
}

// PlayerConfig represents playback control configuration.
type PlayerConfig struct {
	Volume             int  `yaml:"volume" default:"70" validate:"gte=0,lte=100"`
	ProgressIntervalMs int  `yaml:"progress_interval_ms" default:"100" validate:"gte=10,lte=5000"`
	ConfirmClear       bool `yaml:"confirm_clear" default:"true"`
}

// ProgressInterval returns the progress pump cadence.
func (p PlayerConfig) ProgressInterval() time.Duration {
	return time.Duration(p.ProgressIntervalMs) * time.Millisecond
}

// AudioConfig represents the audio engine configuration.
// Settings are decoded by the selected engine.
type AudioConfig struct {
	Engine   string         `yaml:"engine" default:"beep" validate:"required"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LibraryConfig represents directory scanning configuration.
type LibraryConfig struct {
	Extensions    []string `yaml:"extensions" default:"[\"mp3\",\"wav\",\"ogg\",\"flac\"]" validate:"min=1,dive,required"`
	Recursive     bool     `yaml:"recursive" default:"true"`
	IncludeHidden bool     `yaml:"include_hidden"`

	// Optional scan filters keyed by name (duplicate_track_filter, duration_limit_filter).
	Filters map[string]FilterConfig `yaml:"filters,omitempty"`
}

// FilterConfig represents an optional library filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stderr"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
}

// HTTPConfig represents the control API configuration. An empty address disables the server.
type HTTPConfig struct {
	Addr               string `yaml:"addr"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec" default:"10" validate:"gte=1"`
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownTimeoutSec) * time.Second
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	// Defaults are static tags; an error here is a programming error.
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
// The boolean reports whether the file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	if path != "" {
		_, err := os.Stat(path)
		if err == nil {
			cfg, err := Load(path)
			return cfg, err == nil, err
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, errors.Wrap(err, "failed to stat config file")
		}
	}

	cfg := Default()
	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, false, errors.Wrap(err, "config validation failed")
	}
	return cfg, false, nil
}

// Parse parses YAML configuration data.
func Parse(data []byte) (*Config, error) {
	// Defaults first so that explicit zero values in the file are kept.
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvAudioEngine); v != "" {
		c.Audio.Engine = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// HTTPEnabled reports whether the control API should be served.
func (c *Config) HTTPEnabled() bool {
	return c.HTTP.Addr != ""
}
