package memory

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a call carries a malformed argument.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError names the offending argument.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func validateKey(key string) error {
	if key == "" {
		return &InvalidArgumentError{Field: "key", Reason: "must not be empty"}
	}
	return nil
}
