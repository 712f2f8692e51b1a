package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pressure/internal/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pressure.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

	return p
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, "AA", cfg.Start)
	require.Equal(t, 30, cfg.Budget)
	require.Equal(t, "memoized", cfg.Strategy)
	require.Equal(t, 1, cfg.Parallelism)
	require.Equal(t, "text", cfg.Format)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, config.CacheNone, cfg.Cache.Kind)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	p := writeFile(t, `
start: BB
budget: 26
strategy: bnb
timeout: 5s
cache:
  kind: sqlite
  dsn: /tmp/runs.db
  ttl: 1h
log:
  level: debug
`)
	t.Setenv("PRESSURE_BUDGET", "12")
	t.Setenv("PRESSURE_TRACE", "true")
	t.Setenv("PRESSURE_CACHE_TTL", "90s")

	cfg, err := config.Load(p)
	require.NoError(t, err)
	require.Equal(t, "BB", cfg.Start)
	require.Equal(t, 12, cfg.Budget)
	require.Equal(t, "bnb", cfg.Strategy)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.True(t, cfg.Trace)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 90*time.Second, cfg.Cache.TTL)
	require.Equal(t, 1, cfg.Parallelism, "untouched default")
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(writeFile(t, "budgett: 3\n"))
	require.Error(t, err, "unknown keys are rejected")

	t.Setenv("PRESSURE_PARALLEL", "many")
	_, err = config.Load("")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeFile(t, ""))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"empty start":    func(c *config.Config) { c.Start = "" },
		"negative":       func(c *config.Config) { c.Budget = -1 },
		"huge budget":    func(c *config.Config) { c.Budget = 1 << 20 },
		"strategy":       func(c *config.Config) { c.Strategy = "greedy" },
		"parallelism":    func(c *config.Config) { c.Parallelism = 0 },
		"timeout":        func(c *config.Config) { c.Timeout = -time.Second },
		"format":         func(c *config.Config) { c.Format = "xml" },
		"log level":      func(c *config.Config) { c.Log.Level = "loud" },
		"cache kind":     func(c *config.Config) { c.Cache.Kind = "memcached" },
		"cache sans dsn": func(c *config.Config) { c.Cache.Kind = config.CacheRedis },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
		})
	}
}
