package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/storage/inmemory"
)

// MockDriver wraps an in-memory driver, counts calls, and can be switched to
// fail every operation with a storage.UnavailableError.
type MockDriver struct {
	*inmemory.Driver

	mu    sync.Mutex
	calls int
	fail  bool
}

// NewMockDriver creates a new mock driver over an empty in-memory store.
func NewMockDriver() *MockDriver {
	return &MockDriver{Driver: inmemory.NewDriver()}
}

var _ storage.Driver = (*MockDriver)(nil)

// SetFailing toggles whether every operation fails as unavailable.
func (m *MockDriver) SetFailing(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Calls returns how many driver operations have been invoked.
func (m *MockDriver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDriver) enter(op, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return &storage.UnavailableError{Op: op, Key: key, Err: context.DeadlineExceeded}
	}
	return nil
}

// Get records the call and delegates unless failing.
func (m *MockDriver) Get(ctx context.Context, key string) (string, bool, error) {
	if err := m.enter("get", key); err != nil {
		return "", false, err
	}
	return m.Driver.Get(ctx, key)
}

// Set records the call and delegates unless failing.
func (m *MockDriver) Set(ctx context.Context, key, value string) error {
	if err := m.enter("set", key); err != nil {
		return err
	}
	return m.Driver.Set(ctx, key, value)
}

// Delete records the call and delegates unless failing.
func (m *MockDriver) Delete(ctx context.Context, key string) (bool, error) {
	if err := m.enter("delete", key); err != nil {
		return false, err
	}
	return m.Driver.Delete(ctx, key)
}

// ListKeys records the call and delegates unless failing.
func (m *MockDriver) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := m.enter("list", prefix); err != nil {
		return nil, err
	}
	return m.Driver.ListKeys(ctx, prefix)
}
