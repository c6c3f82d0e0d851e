// Package auth resolves bearer tokens into client identities and enforces
// per-operation scopes.
package auth

import (
	"context"
	"slices"
	"strings"
)

// TokenRecord is a registered credential.
type TokenRecord struct {
	Token    string
	ClientID string
	Scopes   []Scope
}

// HasScope reports whether the record grants the scope.
func (r *TokenRecord) HasScope(scope Scope) bool {
	return slices.Contains(r.Scopes, scope)
}

// Registry resolves a presented token into its record. Implementations
// return ErrInvalidCredential (or an error wrapping it) for unknown tokens and
// must be safe for concurrent use.
type Registry interface {
	Resolve(ctx context.Context, token string) (*TokenRecord, error)
}

// Context is the identity established for a single authorized call.
type Context struct {
	ClientID  string
	Scopes    []Scope
	RequestID string
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying the auth context.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the auth context stored by WithContext, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(*Context)
	return ac, ok && ac != nil
}

// BearerToken extracts the token from an Authorization header value.
// Returns an empty string when the header is not a bearer credential.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
