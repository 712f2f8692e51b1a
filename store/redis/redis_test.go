package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pressure/search"
	"github.com/katalvlaran/pressure/store"
	"github.com/katalvlaran/pressure/store/redis"
)

func newCache(t *testing.T, ttl time.Duration) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func record(fp string) store.Record {
	return store.NewRecord(fp, "AA", 6, search.Result{
		MaxPressureReleased: 93,
		Strategy:            search.BranchAndBound,
		Actions:             []search.Action{{Kind: search.MoveTo, Valve: "DD"}, {Kind: search.OpenValve, Valve: "DD"}},
	})
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, 0)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	rec := record("fp1")
	require.NoError(t, c.Put(ctx, rec))
	require.True(t, mr.Exists("pressure:run:fp1"))

	got, ok, err := c.Get(ctx, "fp1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.RunID, got.RunID)
	require.Equal(t, uint64(93), got.MaxPressure)
	require.Equal(t, rec.Actions, got.Actions)
	require.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	res, err := got.Result()
	require.NoError(t, err)
	require.Equal(t, search.BranchAndBound, res.Strategy)

	newer := record("fp1")
	newer.MaxPressure = 94
	require.NoError(t, c.Put(ctx, newer))
	got, _, err = c.Get(ctx, "fp1")
	require.NoError(t, err)
	require.Equal(t, newer.RunID, got.RunID)
}

func TestCache_EmptyTraceSurvives(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, 0)

	rec := store.NewRecord("fp0", "AA", 0, search.Result{Actions: []search.Action{}})
	require.NoError(t, c.Put(ctx, rec))

	got, ok, err := c.Get(ctx, "fp0")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.Actions)
	require.Empty(t, got.Actions)

	require.NoError(t, c.Put(ctx, record("fp1")))
	raw, err := mr.Get("pressure:run:fp1")
	require.NoError(t, err)
	require.Contains(t, raw, `"actions":[{"kind":"move","valve":"DD"},{"kind":"open","valve":"DD"}]`)
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, time.Minute)

	require.NoError(t, c.Put(ctx, record("fp2")))
	require.Equal(t, time.Minute, mr.TTL("pressure:run:fp2"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "fp2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_Errors(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, 0)

	require.ErrorIs(t, c.Put(ctx, store.Record{}), store.ErrInvalidRecord)

	require.NoError(t, mr.Set("pressure:run:bad", "{not json"))
	_, _, err := c.Get(ctx, "bad")
	require.Error(t, err)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := redis.Dial(context.Background(), "redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = redis.Dial(context.Background(), "not-a-url", 0)
	require.Error(t, err)
}
