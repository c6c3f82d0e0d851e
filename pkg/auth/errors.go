package auth

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the caller-facing error for every authorization failure.
// Transports render it as a single "not authorized" message.
var ErrUnauthorized = errors.New("not authorized")

var (
	// ErrInvalidCredential is returned when the token is missing, unknown,
	// malformed or expired.
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrUnauthorized)

	// ErrInsufficientScope is returned when a valid credential lacks the
	// scope the operation requires.
	ErrInsufficientScope = fmt.Errorf("%w: insufficient scope", ErrUnauthorized)
)
