package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"image-filter-editor/internal/core"
	"image-filter-editor/internal/filters"
)

const (
	defaultCacheEntries = 256
	LogFormatText       = "text"
	LogFormatJSON       = "json"
)

// Config holds the editor settings read from a YAML file
type Config struct {
	Debug            bool                         `yaml:"debug"`
	LogFormat        string                       `yaml:"log_format"`        // text, json
	ApplyMode        string                       `yaml:"apply_mode"`        // replace, append
	RecomputeWorkers int                          `yaml:"recompute_workers"` // 0 means one per CPU
	CacheEntries     int                          `yaml:"cache_entries"`
	Database         string                       `yaml:"database,omitempty"` // empty disables persistence
	Presets          map[string]filters.ChainSpec `yaml:"presets,omitempty"`
}

// Default returns the settings used when no file is present
func Default() *Config {
	return &Config{
		LogFormat:        LogFormatText,
		ApplyMode:        core.Replace.String(),
		RecomputeWorkers: runtime.NumCPU(),
		CacheEntries:     defaultCacheEntries,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate normalizes zero values and rejects unknown settings
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "":
		c.LogFormat = LogFormatText
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if _, err := core.ParseMode(c.ApplyMode); err != nil {
		return err
	}
	if c.RecomputeWorkers < 0 {
		return fmt.Errorf("recompute_workers must not be negative, got %d", c.RecomputeWorkers)
	}
	if c.RecomputeWorkers == 0 {
		c.RecomputeWorkers = runtime.NumCPU()
	}
	if c.CacheEntries <= 0 {
		c.CacheEntries = defaultCacheEntries
	}
	for _, name := range c.PresetNames() {
		if _, err := c.Presets[name].Build(); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return nil
}

// Mode returns the configured default apply mode
func (c *Config) Mode() core.Mode {
	m, _ := core.ParseMode(c.ApplyMode)
	return m
}

func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset builds a fresh chain from the named preset
func (c *Config) Preset(name string) (*filters.Chain, error) {
	spec, ok := c.Presets[name]
	if !ok {
		return nil, fmt.Errorf("no preset named %q", name)
	}
	return spec.Build()
}
