package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/gcsearch/internal/backend"
)

// Defaults applied to zero values.
const (
	DefaultBackendURL        = "http://localhost:5000/api"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultPlatform          = backend.WhatsApp
	DefaultWindowSize        = 10
	DefaultMaxParallel       = 8
	DefaultTopN              = backend.DefaultTopN
	DefaultMaxProximityRange = backend.DefaultMaxProximityGap
)

// Config represents the global ~/.gcsearch/config.toml.
type Config struct {
	DefaultProfile    string          `toml:"default_profile"`
	BackendURL        string          `toml:"backend_url"`
	RequestTimeout    Duration        `toml:"request_timeout"`
	DefaultPlatform   string          `toml:"default_platform"`
	TopN              int             `toml:"top_n"`
	MaxProximityRange int             `toml:"max_proximity_range"`
	WindowSize        int             `toml:"window_size"`
	Directory         DirectoryConfig `toml:"directory"`
}

// DirectoryConfig tunes the conversation directory fan-out.
type DirectoryConfig struct {
	MaxParallel int `toml:"max_parallel"`
}

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist. Defaults are applied to unset keys either way.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if c.DefaultPlatform == "" {
		c.DefaultPlatform = string(DefaultPlatform)
	}
	if c.TopN == 0 {
		c.TopN = DefaultTopN
	}
	if c.MaxProximityRange == 0 {
		c.MaxProximityRange = DefaultMaxProximityRange
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.Directory.MaxParallel == 0 {
		c.Directory.MaxParallel = DefaultMaxParallel
	}
}

// Validate checks values after defaults were applied.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend_url %q", c.BackendURL)
	}
	if _, err := backend.ParsePlatform(c.DefaultPlatform); err != nil {
		return fmt.Errorf("invalid default_platform: %w", err)
	}
	if c.RequestTimeout.Duration < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	for _, f := range []struct {
		key string
		v   int
	}{
		{"top_n", c.TopN},
		{"max_proximity_range", c.MaxProximityRange},
		{"window_size", c.WindowSize},
		{"directory.max_parallel", c.Directory.MaxParallel},
	} {
		if f.v < 1 {
			return fmt.Errorf("%s must be positive, got %d", f.key, f.v)
		}
	}
	return nil
}

// Platform returns the validated default platform.
func (c *Config) Platform() backend.Platform {
	p, err := backend.ParsePlatform(c.DefaultPlatform)
	if err != nil {
		return DefaultPlatform
	}
	return p
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
