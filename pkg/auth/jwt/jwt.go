// Package jwt provides an auth.Registry that accepts HMAC-signed JWTs.
//
// The subject claim becomes the client id. Scopes come from the space
// separated "scope" claim and the "scopes" array claim; scopes the service
// does not recognize are ignored. Expiry is always required.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/papercomputeco/mnemo/pkg/auth"
)

// Config configures the JWT registry.
type Config struct {
	// Secret is the HMAC signing key.
	Secret []byte

	// Issuer, when set, must match the "iss" claim.
	Issuer string

	// Audience, when set, must be present in the "aud" claim.
	Audience string

	// Leeway tolerates clock skew on time based claims.
	Leeway time.Duration
}

// Claims is the token payload.
type Claims struct {
	Scope  string   `json:"scope,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	gojwt.RegisteredClaims
}

// Registry validates signed tokens. It holds no per-token state.
type Registry struct {
	cfg    Config
	parser *gojwt.Parser
}

// New creates a Registry.
func New(cfg Config) (*Registry, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{
			gojwt.SigningMethodHS256.Alg(),
			gojwt.SigningMethodHS384.Alg(),
			gojwt.SigningMethodHS512.Alg(),
		}),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(cfg.Leeway))
	}

	return &Registry{
		cfg:    cfg,
		parser: gojwt.NewParser(opts...),
	}, nil
}

// Resolve verifies the token signature and claims.
func (r *Registry) Resolve(_ context.Context, token string) (*auth.TokenRecord, error) {
	claims := &Claims{}
	_, err := r.parser.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return r.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrInvalidCredential, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", auth.ErrInvalidCredential)
	}

	return &auth.TokenRecord{
		Token:    token,
		ClientID: claims.Subject,
		Scopes:   claims.grantedScopes(),
	}, nil
}

// Issue signs a token for the client with the given scopes and lifetime.
func (r *Registry) Issue(clientID string, scopes []auth.Scope, ttl time.Duration) (string, error) {
	if clientID == "" {
		return "", errors.New("client id is required")
	}
	if ttl <= 0 {
		return "", errors.New("token lifetime must be positive")
	}

	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = string(s)
	}

	now := time.Now()
	claims := Claims{
		Scope: strings.Join(names, " "),
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   clientID,
			Issuer:    r.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if r.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{r.cfg.Audience}
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(r.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (c *Claims) grantedScopes() []auth.Scope {
	raw := append(strings.Fields(c.Scope), c.Scopes...)

	scopes := make([]auth.Scope, 0, len(raw))
	for _, name := range raw {
		scope, err := auth.ParseScope(name)
		if err != nil || slices.Contains(scopes, scope) {
			continue
		}
		scopes = append(scopes, scope)
	}
	return scopes
}
