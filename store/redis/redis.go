// Package redis is a store.Cache keeping the latest run per fingerprint in
// Redis as a JSON value, optionally expiring after a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/katalvlaran/pressure/store"
)

const keyPrefix = "pressure:run:"

// Cache implements store.Cache on a go-redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ store.Cache = (*Cache)(nil)

// New wraps client. A zero ttl keeps entries until evicted.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Dial parses a redis:// URL and connects, failing when the server does not
// answer PING.
func Dial(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store/redis: parse url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store/redis: ping: %w", err)
	}

	return New(client, ttl), nil
}

func key(fp string) string { return keyPrefix + fp }

// Get loads the run stored under fp.
func (c *Cache) Get(ctx context.Context, fp string) (store.Record, bool, error) {
	data, err := c.client.Get(ctx, key(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("store/redis: get %s: %w", fp, err)
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.Record{}, false, fmt.Errorf("store/redis: decode %s: %w", fp, err)
	}

	return rec, true, nil
}

// Put overwrites the run stored under rec.Fingerprint.
func (c *Cache) Put(ctx context.Context, rec store.Record) error {
	if rec.RunID == "" || rec.Fingerprint == "" {
		return fmt.Errorf("%w: run %q fingerprint %q", store.ErrInvalidRecord, rec.RunID, rec.Fingerprint)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store/redis: encode %s: %w", rec.RunID, err)
	}
	if err := c.client.Set(ctx, key(rec.Fingerprint), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store/redis: set %s: %w", rec.Fingerprint, err)
	}

	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
