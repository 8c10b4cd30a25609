// Package config loads build settings from a TOML or YAML file and merges
// them with command-line values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"unified/pkg/core"
	"unified/pkg/logging"
)

var (
	ErrMissingRoot   = fmt.Errorf("%w: no root directory specified", core.ErrConfig)
	ErrMissingOutput = fmt.Errorf("%w: no output name specified", core.ErrConfig)
)

// Config holds everything a build needs.
type Config struct {
	Root     string   `toml:"root" yaml:"root"`
	Output   string   `toml:"output" yaml:"output"`
	Update   string   `toml:"update" yaml:"update"`
	Compress bool     `toml:"compress" yaml:"compress"`
	Exclude  []string `toml:"exclude" yaml:"exclude"`

	Log LogConfig `toml:"log" yaml:"log"`
}

// LogConfig selects log verbosity and format.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// Default returns the settings used when nothing is specified.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a config file, choosing the decoder by extension. Fields the
// file leaves out keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %w", core.ErrConfig, err)
	}

	cfg := Default()
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("%w: decode TOML: %w", core.ErrConfig, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: decode YAML: %w", core.ErrConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", core.ErrConfig, ext)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of o onto c. Exclude patterns are
// appended.
func (c *Config) Merge(o *Config) {
	if o.Root != "" {
		c.Root = o.Root
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Update != "" {
		c.Update = o.Update
	}
	if o.Compress {
		c.Compress = true
	}
	c.Exclude = append(c.Exclude, o.Exclude...)
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
	if o.Log.JSON {
		c.Log.JSON = true
	}
}

// Validate reports missing required settings and malformed patterns.
func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrMissingRoot
	}
	if c.Output == "" {
		return ErrMissingOutput
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: bad exclude pattern %q", core.ErrConfig, pattern)
		}
	}
	return nil
}

// Options converts the settings into build options.
func (c *Config) Options() core.Options {
	return core.Options{
		Root:     c.Root,
		Name:     c.Output,
		Update:   c.Update,
		Compress: c.Compress,
		Exclude:  c.Exclude,
	}
}

// Logging converts the log settings into logger options.
func (c *Config) Logging() logging.Options {
	return logging.Options{Level: c.Log.Level, JSON: c.Log.JSON}
}
