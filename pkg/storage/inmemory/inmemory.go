// Package inmemory provides a volatile storage.Driver backed by a map.
//
// Data lives only as long as the Driver value. Nothing is persisted across
// process restarts, so this driver must not be chosen where durability
// matters.
package inmemory

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/mnemo/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex guarding values
	mu sync.RWMutex

	// values maps a stored key to its value
	values map[string]string
}

// NewDriver creates a new empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		values: make(map[string]string),
	}
}

var _ storage.Driver = (*Driver)(nil)

// Get retrieves the value for key.
func (d *Driver) Get(_ context.Context, key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.values[key]
	return value, ok, nil
}

// Set stores value under key, overwriting any previous value.
func (d *Driver) Set(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.values[key] = value
	return nil
}

// Delete removes key and reports whether it was present.
func (d *Driver) Delete(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.values[key]
	if !ok {
		return false, nil
	}

	delete(d.values, key)
	return true, nil
}

// ListKeys returns a snapshot of every key starting with prefix.
func (d *Driver) ListKeys(_ context.Context, prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.values))
	for key := range d.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Count returns the number of keys held by the driver across all prefixes.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.values)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
