package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller authorizes calls against a Registry.
type Controller struct {
	registry Registry
	logger   *zap.Logger
}

// NewController creates a Controller backed by the given registry.
func NewController(registry Registry, logger *zap.Logger) (*Controller, error) {
	if registry == nil {
		return nil, errors.New("token registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		registry: registry,
		logger:   logger,
	}, nil
}

// Authorize resolves the token and checks it carries the required scope.
// Failures wrap ErrInvalidCredential or ErrInsufficientScope, both of which
// satisfy errors.Is(err, ErrUnauthorized). The token itself is never logged.
func (c *Controller) Authorize(ctx context.Context, token string, required Scope) (*Context, error) {
	if token == "" {
		c.logger.Debug("rejected call without credential",
			zap.String("required_scope", string(required)),
		)
		return nil, ErrInvalidCredential
	}

	record, err := c.registry.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredential) {
			err = fmt.Errorf("%w: %w", ErrInvalidCredential, err)
		}
		c.logger.Debug("rejected unknown credential",
			zap.String("required_scope", string(required)),
			zap.Error(err),
		)
		return nil, err
	}

	if !record.HasScope(required) {
		c.logger.Info("rejected call with insufficient scope",
			zap.String("client_id", record.ClientID),
			zap.String("required_scope", string(required)),
		)
		return nil, ErrInsufficientScope
	}

	return &Context{
		ClientID:  record.ClientID,
		Scopes:    slices.Clone(record.Scopes),
		RequestID: uuid.NewString(),
	}, nil
}
