package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pressure/internal/logging"
	"github.com/katalvlaran/pressure/report"
	"github.com/katalvlaran/pressure/search"
	"github.com/katalvlaran/pressure/store"
	"github.com/katalvlaran/pressure/store/redis"
)

const square = `Valve AA has flow rate=0; tunnels lead to valves BB, DD
Valve BB has flow rate=13; tunnels lead to valves AA, CC
Valve CC has flow rate=2; tunnels lead to valves BB, DD
Valve DD has flow rate=20; tunnels lead to valves AA, CC
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()

	return out.String(), err
}

func TestSolve_Sample(t *testing.T) {
	out, err := run(t, "", "solve", "testdata/sample.txt", "--log-level", "error")
	require.NoError(t, err)
	require.Equal(t, "1651\n", out)

	out, err = run(t, "", "solve", "testdata/sample.txt", "--strategy", "bnb", "--log-level", "error")
	require.NoError(t, err)
	require.Equal(t, "1651\n", out)
}

func TestSolve_StdinTraceJSON(t *testing.T) {
	out, err := run(t, square, "solve", "-", "--budget", "6", "--trace", "--format", "json", "--log-level", "error")
	require.NoError(t, err)

	var s report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	require.Equal(t, uint64(93), s.MaxPressure)
	require.Len(t, s.Steps, 6)
	require.Equal(t, "DD", s.Steps[0].Valve)
}

func TestSolve_SQLiteCache(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	args := []string{"solve", "--budget", "6", "--cache", "sqlite", "--cache-dsn", db, "--log-level", "error"}

	for range 2 {
		out, err := run(t, square, args...)
		require.NoError(t, err)
		require.Equal(t, "93\n", out)
	}

	// A traced request is not answered by the untraced run.
	out, err := run(t, square, append(args, "--trace")...)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "93\n"))

	s, err := store.NewSQLite(db)
	require.NoError(t, err)
	defer s.Close()
	hist, err := s.History(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Len(t, hist[0].Actions, 6)
}

func TestSolve_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	args := []string{"solve", "--budget", "6", "--trace", "--cache", "redis", "--cache-dsn", "redis://" + mr.Addr(), "--log-level", "error"}

	first, err := run(t, square, args...)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)

	second, err := run(t, square, args...)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLookup_TraceLengthMatchesBudget(t *testing.T) {
	ctx := t.Context()
	mr := miniredis.RunT(t)
	cache := redis.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), 0)
	defer cache.Close()
	log := logging.NewNop()

	require.NoError(t, cache.Put(ctx, store.NewRecord("zero", "AA", 0, search.Result{Actions: []search.Action{}})))
	_, hit, err := lookup(ctx, cache, "zero", true, log)
	require.NoError(t, err)
	require.True(t, hit, "an empty trace answers a traced zero-budget request")

	require.NoError(t, cache.Put(ctx, store.NewRecord("bare", "AA", 6, search.Result{MaxPressureReleased: 93})))
	_, hit, err = lookup(ctx, cache, "bare", true, log)
	require.NoError(t, err)
	require.False(t, hit)

	res, hit, err := lookup(ctx, cache, "bare", false, log)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, uint64(93), res.MaxPressureReleased)
}

func TestSolve_RedisZeroBudgetTrace(t *testing.T) {
	mr := miniredis.RunT(t)
	args := []string{"solve", "--budget", "0", "--trace", "--cache", "redis", "--cache-dsn", "redis://" + mr.Addr(), "--log-level", "error"}

	for range 2 {
		out, err := run(t, square, args...)
		require.NoError(t, err)
		require.Equal(t, "0\n", out)
	}
	require.Len(t, mr.Keys(), 1)
}

func TestHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	args := []string{"solve", "--budget", "6", "--cache", "sqlite", "--cache-dsn", db, "--log-level", "error"}
	_, err := run(t, square, args...)
	require.NoError(t, err)
	_, err = run(t, square, append(args, "--trace")...)
	require.NoError(t, err)

	out, err := run(t, "", "history", "--cache-dsn", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"run_id", "created_at", "start", "budget", "strategy", "max_pressure", "traced"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"AA", "6", "memoized", "93", "true"}, strings.Fields(lines[1])[2:])
	require.Equal(t, "false", strings.Fields(lines[2])[6])

	out, err = run(t, "", "history", "--cache-dsn", db, "--limit", "1")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 2)

	_, err = run(t, "", "history")
	require.ErrorIs(t, err, errNoHistory)
}

func TestSolve_ConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "pressure.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("budget: 6\nlog:\n  level: error\n"), 0o600))

	out, err := run(t, square, "solve", "--config", cfg)
	require.NoError(t, err)
	require.Equal(t, "93\n", out)

	out, err = run(t, square, "solve", "--config", cfg, "--budget", "0")
	require.NoError(t, err)
	require.Equal(t, "0\n", out)
}

func TestSolve_Errors(t *testing.T) {
	_, err := run(t, square, "solve", "--start", "ZZ", "--log-level", "error")
	require.Error(t, err)

	_, err = run(t, square, "solve", "--strategy", "greedy")
	require.Error(t, err)

	_, err = run(t, "Valve AA has a flow\n", "solve")
	require.Error(t, err)

	_, err = run(t, "", "solve", "testdata/missing.txt")
	require.Error(t, err)
}

func TestDistances(t *testing.T) {
	out, err := run(t, "", "distances", "testdata/sample.txt")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	require.Equal(t, []string{"AA", "BB", "CC", "DD", "EE", "HH", "JJ", "flow"}, strings.Fields(lines[0]))

	out, err = run(t, square, "distances", "--all")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 5)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, "pressure version dev\n", out)
}
