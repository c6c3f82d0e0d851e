package storage

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable is matched (via errors.Is) by every error a driver
// returns when its underlying store cannot be reached or times out.
var ErrBackendUnavailable = errors.New("storage backend unavailable")

// UnavailableError is returned when a durable driver exhausts its retries
// against the underlying store.
type UnavailableError struct {
	// Op is the driver operation that failed (get, set, delete, list).
	Op string

	// Key is the key or prefix the operation targeted.
	Key string

	// Err is the last underlying error observed.
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage backend unavailable: %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("storage backend unavailable: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}
