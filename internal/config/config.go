// # internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ManifestPath string     `toml:"manifest_path"`
	NoCargo      bool       `toml:"no_cargo"`
	Resolution   Resolution `toml:"resolution"`
	Exclude      Exclude    `toml:"exclude"`
	Watch        Watch      `toml:"watch"`
	History      History    `toml:"history"`
	Metrics      Metrics    `toml:"metrics"`
}

type Resolution struct {
	NoDefaultFeatures bool     `toml:"no_default_features"`
	Features          []string `toml:"features"`
	Flags             []string `toml:"flags"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MaxRunsPerSecond caps how often watch mode re-resolves after bursts
	// of filesystem events.
	MaxRunsPerSecond float64 `toml:"max_runs_per_second"`
	Burst            int     `toml:"burst"`
}

type History struct {
	Path string `toml:"path"`
}

type Metrics struct {
	Addr string `toml:"addr"`
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerSecond == 0 {
		cfg.Watch.MaxRunsPerSecond = 2
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 1
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"target", ".git"}
	}
}
