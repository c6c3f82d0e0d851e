// Package namespace isolates one service's keys inside a shared
// storage.Driver by prefixing every logical key with a fixed namespace.
//
// Callers only ever see short keys: the prefix is added on the way into the
// driver and stripped on the way out.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

// DefaultPrefix is the namespace used by the memory service.
const DefaultPrefix = "mcp:memory:"

// CheckPrefix validates a namespace prefix. Namespaces sharing a backend
// overlap when one is a prefix of another: "mcp:" would list the default
// namespace's keys as "memory:<key>". Prefixes overlapping DefaultPrefix are
// rejected; other nested pairs are the operator's responsibility.
func CheckPrefix(prefix string) error {
	if prefix == "" {
		return errors.New("namespace prefix is required")
	}
	if prefix != DefaultPrefix &&
		(strings.HasPrefix(DefaultPrefix, prefix) || strings.HasPrefix(prefix, DefaultPrefix)) {
		return fmt.Errorf("namespace %q overlaps the default namespace %q", prefix, DefaultPrefix)
	}
	return nil
}

// Entry is a single short-key/value pair held in a namespace.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Namespacer wraps a storage.Driver with a fixed key prefix.
type Namespacer struct {
	driver storage.Driver
	prefix string
	logger *zap.Logger
}

// New creates a Namespacer over driver. The prefix is fixed for the lifetime
// of the Namespacer.
func New(driver storage.Driver, prefix string, logger *zap.Logger) (*Namespacer, error) {
	if driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if err := CheckPrefix(prefix); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Namespacer{
		driver: driver,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Prefix returns the namespace prefix.
func (n *Namespacer) Prefix() string {
	return n.prefix
}

// Remember stores value under the namespaced key.
func (n *Namespacer) Remember(ctx context.Context, key, value string) error {
	return n.driver.Set(ctx, n.prefix+key, value)
}

// Recall retrieves the value stored under the namespaced key.
func (n *Namespacer) Recall(ctx context.Context, key string) (string, bool, error) {
	return n.driver.Get(ctx, n.prefix+key)
}

// Forget deletes the namespaced key and reports whether it was present.
func (n *Namespacer) Forget(ctx context.Context, key string) (bool, error) {
	return n.driver.Delete(ctx, n.prefix+key)
}

// ListAll returns every entry in the namespace with the prefix stripped.
//
// Keys that come back without the prefix are skipped and logged as a data
// consistency warning. Keys deleted between listing and reading are skipped.
func (n *Namespacer) ListAll(ctx context.Context) ([]Entry, error) {
	keys, err := n.driver.ListKeys(ctx, n.prefix)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for _, full := range keys {
		short, ok := strings.CutPrefix(full, n.prefix)
		if !ok {
			fields := []zap.Field{
				zap.String("namespace", n.prefix),
				zap.String("key", full),
			}
			if ac, ok := auth.FromContext(ctx); ok {
				fields = append(fields, zap.String("request_id", ac.RequestID))
			}
			n.logger.Warn("storage returned key outside namespace", fields...)
			continue
		}

		value, found, err := n.driver.Get(ctx, full)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		entries = append(entries, Entry{Key: short, Value: value})
	}

	return entries, nil
}
