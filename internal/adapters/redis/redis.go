// Package redis holds the go-redis client helpers shared by the Redis adapters.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// MaxTxRetries bounds optimistic WATCH/MULTI retries under contention.
const MaxTxRetries = 100

// ErrTxContention is returned when an optimistic transaction keeps losing races.
var ErrTxContention = errors.New("redis transaction retries exhausted")

// NewClient parses a redis:// or rediss:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Watch runs fn in an optimistic transaction over keys, retrying while
// another client modifies a watched key.
func Watch(ctx context.Context, client *goredis.Client, fn func(tx *goredis.Tx) error, keys ...string) error {
	for i := 0; i < MaxTxRetries; i++ {
		err := client.Watch(ctx, fn, keys...)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxContention
}
