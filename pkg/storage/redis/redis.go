// Package redis provides a durable storage.Driver backed by a Redis server.
//
// Keys are stored verbatim with plain string values; enumeration uses SCAN
// with a MATCH pattern built from the escaped prefix. The server serializes
// access to each key, so the driver holds no in-process lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/mnemo/pkg/storage"
)

const scanCount = 256

// Config holds connection settings for the Redis driver.
type Config struct {
	// Addr is the host:port of the Redis server (e.g. "localhost:6379").
	Addr string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int

	// Retry bounds per-operation timeouts and retries.
	Retry storage.RetryPolicy
}

// Driver implements storage.Driver against a Redis server.
type Driver struct {
	client *goredis.Client
	retry  storage.RetryPolicy
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver connects to Redis and verifies the server answers PING.
func NewDriver(ctx context.Context, c Config) (*Driver, error) {
	if c.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,

		// Retries are owned by storage.Retry so timeouts stay bounded.
		MaxRetries: -1,

		// Socket deadlines follow the per-attempt context instead of the
		// client's fixed read/write timeouts.
		ContextTimeoutEnabled: true,
	})

	d := &Driver{
		client: client,
		retry:  c.Retry,
	}

	err := storage.Retry(ctx, d.retry, "ping", "", isTransient, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Addr, err)
	}

	return d, nil
}

// Get retrieves the value for key. redis.Nil is reported as not found.
func (d *Driver) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)

	err := storage.Retry(ctx, d.retry, "get", key, isTransient, func(ctx context.Context) error {
		v, err := d.client.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			value, found = "", false
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	return value, found, nil
}

// Set stores value under key with no expiry.
func (d *Driver) Set(ctx context.Context, key, value string) error {
	return storage.Retry(ctx, d.retry, "set", key, isTransient, func(ctx context.Context) error {
		return d.client.Set(ctx, key, value, 0).Err()
	})
}

// Delete removes key and reports whether it existed.
func (d *Driver) Delete(ctx context.Context, key string) (bool, error) {
	var deleted int64

	err := storage.Retry(ctx, d.retry, "delete", key, isTransient, func(ctx context.Context) error {
		n, err := d.client.Del(ctx, key).Result()
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return false, err
	}

	return deleted > 0, nil
}

// ListKeys walks the keyspace with SCAN and returns every key under prefix.
// The whole walk is retried from the start on failure; SCAN may report a key
// more than once, so results are deduplicated.
func (d *Driver) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(prefix) + "*"

	var keys []string
	err := storage.Retry(ctx, d.retry, "list", prefix, isTransient, func(ctx context.Context) error {
		seen := make(map[string]struct{})
		keys = make([]string, 0)

		var cursor uint64
		for {
			batch, next, err := d.client.Scan(ctx, cursor, pattern, scanCount).Result()
			if err != nil {
				return err
			}

			for _, key := range batch {
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				keys = append(keys, key)
			}

			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Close closes the underlying Redis client.
func (d *Driver) Close() error {
	return d.client.Close()
}

// isTransient treats everything except server-side command errors as a
// connectivity failure worth retrying.
func isTransient(err error) bool {
	var redisErr goredis.Error
	if errors.As(err, &redisErr) {
		msg := redisErr.Error()
		return strings.HasPrefix(msg, "LOADING") ||
			strings.HasPrefix(msg, "BUSY") ||
			strings.HasPrefix(msg, "TRYAGAIN") ||
			strings.HasPrefix(msg, "CLUSTERDOWN")
	}
	return true
}

// escapeGlob escapes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
