// Package cache defines the key-value store holding session snapshots.
package cache

import (
	"context"
	"time"
)

// Client is a byte-oriented key-value store with expiry. A missing key is
// not an error: Get returns nil.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl applies the client default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}
