package auth

import (
	"fmt"
	"slices"
)

// Scope is a named permission attached to a credential.
type Scope string

const (
	// ScopeRead permits recall and list.
	ScopeRead Scope = "read:data"

	// ScopeWrite permits remember and forget.
	ScopeWrite Scope = "write:data"
)

// KnownScopes returns every scope the service recognizes.
func KnownScopes() []Scope {
	return []Scope{ScopeRead, ScopeWrite}
}

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	scope := Scope(s)
	if !slices.Contains(KnownScopes(), scope) {
		return "", fmt.Errorf("unknown scope %q (valid: %s, %s)", s, ScopeRead, ScopeWrite)
	}
	return scope, nil
}

// ParseScopes validates a list of scope names.
func ParseScopes(ss []string) ([]Scope, error) {
	scopes := make([]Scope, 0, len(ss))
	for _, s := range ss {
		scope, err := ParseScope(s)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}
