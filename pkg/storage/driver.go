// Package storage defines the key-value contract every mnemo storage backend
// satisfies. Volatile (pkg/storage/inmemory) and durable (pkg/storage/redis,
// pkg/storage/sqlite, pkg/storage/postgres) drivers are interchangeable:
// callers only ever see this interface.
package storage

import (
	"context"
)

// Driver defines single-key operations over an opaque string value space.
//
// Implementations must be safe for concurrent use. Absence is never an error:
// Get reports it through the found return and Delete through the deleted
// return. Durable drivers report connectivity failures as UnavailableError.
type Driver interface {
	// Get retrieves the value stored under key. found is false when no value
	// is stored.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, unconditionally overwriting any previous
	// value (last writer wins).
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Returns true if a value was present. Deleting an
	// absent key returns false and no error.
	Delete(ctx context.Context, key string) (bool, error)

	// ListKeys returns every stored key beginning with prefix, in no
	// particular order. Returns an empty slice when nothing matches.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the driver.
	Close() error
}
