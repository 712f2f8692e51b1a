// Package config loads the pressure command configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// PRESSURE_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/pressure/internal/logging"
	"github.com/katalvlaran/pressure/report"
	"github.com/katalvlaran/pressure/search"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("config: invalid")

// Cache kinds.
const (
	CacheNone   = "none"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Config is the full command configuration.
type Config struct {
	Start       string        `yaml:"start"`
	Budget      int           `yaml:"budget"`
	Strategy    string        `yaml:"strategy"`
	Parallelism int           `yaml:"parallelism"`
	Timeout     time.Duration `yaml:"timeout"`
	Trace       bool          `yaml:"trace"`
	Format      string        `yaml:"format"`
	Undirected  bool          `yaml:"undirected"`
	MetricsAddr string        `yaml:"metrics_addr"`

	Log   Log   `yaml:"log"`
	Cache Cache `yaml:"cache"`
}

// Log configures internal/logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Cache selects a results store.
type Cache struct {
	Kind string        `yaml:"kind"`
	DSN  string        `yaml:"dsn"`
	TTL  time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Start:       "AA",
		Budget:      30,
		Strategy:    search.Memoized.String(),
		Parallelism: 1,
		Format:      report.Text.String(),
		Log:         Log{Level: "info", Format: "text"},
		Cache:       Cache{Kind: CacheNone},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and the environment. The result is not validated; call
// Validate once flags have been applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PRESSURE_START":        &c.Start,
		"PRESSURE_STRATEGY":     &c.Strategy,
		"PRESSURE_FORMAT":       &c.Format,
		"PRESSURE_METRICS_ADDR": &c.MetricsAddr,
		"PRESSURE_LOG_LEVEL":    &c.Log.Level,
		"PRESSURE_LOG_FORMAT":   &c.Log.Format,
		"PRESSURE_CACHE":        &c.Cache.Kind,
		"PRESSURE_CACHE_DSN":    &c.Cache.DSN,
	}
	for k, p := range strs {
		if v, ok := lookup(k); ok {
			*p = v
		}
	}

	ints := map[string]*int{
		"PRESSURE_BUDGET":   &c.Budget,
		"PRESSURE_PARALLEL": &c.Parallelism,
	}
	for k, p := range ints {
		if v, ok := lookup(k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, k, v, err)
			}
			*p = n
		}
	}

	bools := map[string]*bool{
		"PRESSURE_TRACE":      &c.Trace,
		"PRESSURE_UNDIRECTED": &c.Undirected,
	}
	for k, p := range bools {
		if v, ok := lookup(k); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, k, v, err)
			}
			*p = b
		}
	}

	durs := map[string]*time.Duration{
		"PRESSURE_TIMEOUT":   &c.Timeout,
		"PRESSURE_CACHE_TTL": &c.Cache.TTL,
	}
	for k, p := range durs {
		if v, ok := lookup(k); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, k, v, err)
			}
			*p = d
		}
	}

	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.Start == "" {
		return fmt.Errorf("%w: empty start valve", ErrInvalid)
	}
	if c.Budget < 0 || c.Budget > search.MaxBudget {
		return fmt.Errorf("%w: budget %d outside [0, %d]", ErrInvalid, c.Budget, search.MaxBudget)
	}
	if _, err := search.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism %d < 1", ErrInvalid, c.Parallelism)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, c.Timeout)
	}
	if _, err := report.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Cache.Kind {
	case "", CacheNone:
	case CacheSQLite, CacheRedis:
		if c.Cache.DSN == "" {
			return fmt.Errorf("%w: cache %s needs a dsn", ErrInvalid, c.Cache.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown cache %q", ErrInvalid, c.Cache.Kind)
	}

	return nil
}
