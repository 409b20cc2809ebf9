// Package dedup suppresses repeated alerts through Redis-backed keys.
// The updater records a key when a reconciliation-drift alert fires and
// clears it once the books balance again, so each drift episode produces
// exactly one notification.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator checks and records whether an alert has been sent recently.
type Deduplicator struct {
	rdb *redis.Client
}

// New creates a Deduplicator backed by Redis.
func New(redisURL, password string) (*Deduplicator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Deduplicator{rdb: rdb}, nil
}

// Close shuts down the Redis connection.
func (d *Deduplicator) Close() error {
	return d.rdb.Close()
}

// AlreadySent reports whether key has been recorded. Fails closed: when
// Redis is unreachable an alert counts as sent, so an outage never turns
// into an alert storm.
func (d *Deduplicator) AlreadySent(ctx context.Context, key string) bool {
	exists, err := d.rdb.Exists(ctx, key).Result()
	if err != nil {
		return true
	}
	return exists > 0
}

// Record marks key as sent. A zero ttl means no expiry; the key then
// stays until the condition resets and Clear is called.
func (d *Deduplicator) Record(ctx context.Context, key string, ttl time.Duration) {
	d.rdb.Set(ctx, key, "1", ttl)
}

// Clear removes a dedup key so the alert can fire again when the condition resets.
func (d *Deduplicator) Clear(ctx context.Context, key string) {
	d.rdb.Del(ctx, key) //nolint:errcheck
}

// ClearByPattern removes every dedup key matching a glob pattern.
func (d *Deduplicator) ClearByPattern(ctx context.Context, pattern string) {
	iter := d.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		d.rdb.Del(ctx, iter.Val()) //nolint:errcheck
	}
}
