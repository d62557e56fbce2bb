// Package config loads project-level tuning knobs from an arbor.yaml
// file at the project root. Every field has a working default; a
// missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up under the
// project root.
const FileName = "arbor.yaml"

// Duration wraps time.Duration so yaml values like "100ms" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config carries cache, pool, and monitor tuning.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Pool    PoolConfig    `yaml:"pool"`
	Monitor MonitorConfig `yaml:"monitor"`
}

type CacheConfig struct {
	// MaxEntries bounds the number of cached scene templates.
	MaxEntries int `yaml:"max_entries"`
}

type PoolConfig struct {
	// Capacity is the initial per-scene spare bound.
	Capacity int `yaml:"capacity"`
	// MaxCapacity bounds exhaustion-driven growth.
	MaxCapacity int `yaml:"max_capacity"`
	// LowWater is the spare count Trim reduces each queue to.
	LowWater int `yaml:"low_water"`
}

type MonitorConfig struct {
	// Interval between performance samples.
	Interval Duration `yaml:"interval"`
	// Window bounds the sample history length.
	Window int `yaml:"window"`
	// LatencyCeiling flags slow instantiation.
	LatencyCeiling Duration `yaml:"latency_ceiling"`
	// MemoryCeiling flags runaway total node counts.
	MemoryCeiling int `yaml:"memory_ceiling"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{MaxEntries: 128},
		Pool: PoolConfig{
			Capacity:    16,
			MaxCapacity: 256,
			LowWater:    2,
		},
		Monitor: MonitorConfig{
			Interval:       Duration(5 * time.Second),
			Window:         120,
			LatencyCeiling: Duration(50 * time.Millisecond),
			MemoryCeiling:  500_000,
		},
	}
}

// Load reads the configuration under projectDir, falling back to
// defaults when the file does not exist. Set fields override defaults;
// omitted fields keep them.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if c.Pool.Capacity < 0 || c.Pool.MaxCapacity < 0 || c.Pool.LowWater < 0 {
		return fmt.Errorf("pool settings must not be negative")
	}
	if c.Pool.MaxCapacity > 0 && c.Pool.MaxCapacity < c.Pool.Capacity {
		return fmt.Errorf("pool.max_capacity must not be below pool.capacity")
	}
	if c.Monitor.Interval < 0 || c.Monitor.LatencyCeiling < 0 {
		return fmt.Errorf("monitor durations must not be negative")
	}
	return nil
}
