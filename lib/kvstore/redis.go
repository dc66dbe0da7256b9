// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps connection failures from the Redis backend.
var ErrRedisUnavailable = errors.New("kvstore: redis unavailable")

// Redis stores values as Redis strings under prefix+":"+key with no
// expiry; the session lifetime is decided by the server's 401, not by
// a local TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps an existing client. The caller owns the client.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis parses a redis:// URL, connects, and pings. The returned
// close function closes the client.
func OpenRedis(ctx context.Context, rawURL, prefix string) (*Redis, func() error, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: parsing redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRedisUnavailable, options.Addr, err)
	}
	return NewRedis(client, prefix), client.Close, nil
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrRedisUnavailable, r.key(key), err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrRedisUnavailable, r.key(key), err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrRedisUnavailable, r.key(key), err)
	}
	return nil
}
