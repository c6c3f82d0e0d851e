// Package memory provides the authorized key/value memory operations exposed
// to agents: remember, recall, forget and list.
//
// Every operation authorizes the presented token first, then validates its
// arguments, then touches storage. A rejected call never reaches the backend.
// Results are structured; rendering them as text is left to the transports.
package memory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/namespace"
)

// Config is the configuration options for the memory Service.
type Config struct {
	// Controller authorizes every call.
	Controller *auth.Controller

	// Namespacer scopes storage to the service's key prefix.
	Namespacer *namespace.Namespacer

	// Publisher is the optional event sink for successful mutations.
	Publisher eventstream.Publisher

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Service implements the memory operations. It is safe for concurrent use.
type Service struct {
	controller *auth.Controller
	namespacer *namespace.Namespacer
	publisher  eventstream.Publisher
	logger     *zap.Logger
}

// NewService creates a new memory Service.
func NewService(c *Config) (*Service, error) {
	if c.Controller == nil {
		return nil, errors.New("access controller is required")
	}
	if c.Namespacer == nil {
		return nil, errors.New("namespacer is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		controller: c.Controller,
		namespacer: c.Namespacer,
		publisher:  c.Publisher,
		logger:     logger,
	}, nil
}

// Remember stores value under key, replacing any previous value.
func (s *Service) Remember(ctx context.Context, token, key, value string) (*RememberResult, error) {
	ctx, ac, err := s.begin(ctx, token, auth.ScopeWrite, &key)
	if err != nil {
		return nil, err
	}

	if err := s.namespacer.Remember(ctx, key, value); err != nil {
		s.logFailure("remember", ac, key, err)
		return nil, err
	}

	s.logger.Debug("remembered",
		zap.String("client_id", ac.ClientID),
		zap.String("request_id", ac.RequestID),
		zap.String("key", key),
	)
	s.publish(ctx, eventstream.EventTypeMemoryRemembered, ac, key)

	return &RememberResult{Key: key, Value: value}, nil
}

// Recall looks up key.
func (s *Service) Recall(ctx context.Context, token, key string) (*RecallResult, error) {
	ctx, ac, err := s.begin(ctx, token, auth.ScopeRead, &key)
	if err != nil {
		return nil, err
	}

	value, found, err := s.namespacer.Recall(ctx, key)
	if err != nil {
		s.logFailure("recall", ac, key, err)
		return nil, err
	}

	s.logger.Debug("recalled",
		zap.String("client_id", ac.ClientID),
		zap.String("request_id", ac.RequestID),
		zap.String("key", key),
		zap.Bool("found", found),
	)

	return &RecallResult{Key: key, Value: value, Found: found}, nil
}

// Forget removes key. Forgetting an absent key succeeds with Forgotten false.
func (s *Service) Forget(ctx context.Context, token, key string) (*ForgetResult, error) {
	ctx, ac, err := s.begin(ctx, token, auth.ScopeWrite, &key)
	if err != nil {
		return nil, err
	}

	forgotten, err := s.namespacer.Forget(ctx, key)
	if err != nil {
		s.logFailure("forget", ac, key, err)
		return nil, err
	}

	s.logger.Debug("forgot",
		zap.String("client_id", ac.ClientID),
		zap.String("request_id", ac.RequestID),
		zap.String("key", key),
		zap.Bool("forgotten", forgotten),
	)
	if forgotten {
		s.publish(ctx, eventstream.EventTypeMemoryForgotten, ac, key)
	}

	return &ForgetResult{Key: key, Forgotten: forgotten}, nil
}

// List returns every entry in the namespace.
func (s *Service) List(ctx context.Context, token string) (*ListResult, error) {
	ctx, ac, err := s.begin(ctx, token, auth.ScopeRead, nil)
	if err != nil {
		return nil, err
	}

	entries, err := s.namespacer.ListAll(ctx)
	if err != nil {
		s.logFailure("list", ac, "", err)
		return nil, err
	}

	s.logger.Debug("listed",
		zap.String("client_id", ac.ClientID),
		zap.String("request_id", ac.RequestID),
		zap.Int("count", len(entries)),
	)

	return &ListResult{Entries: entries}, nil
}

// Namespace returns the key prefix this service stores under.
func (s *Service) Namespace() string {
	return s.namespacer.Prefix()
}

// begin authorizes, validates the key when one is given, and checks the
// caller has not given up before any backend call is made. The returned
// context carries the auth.Context.
func (s *Service) begin(ctx context.Context, token string, scope auth.Scope, key *string) (context.Context, *auth.Context, error) {
	ac, err := s.controller.Authorize(ctx, token, scope)
	if err != nil {
		return ctx, nil, err
	}

	if key != nil {
		if err := validateKey(*key); err != nil {
			return ctx, nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return ctx, nil, err
	}

	return auth.WithContext(ctx, ac), ac, nil
}

func (s *Service) logFailure(op string, ac *auth.Context, key string, err error) {
	s.logger.Error("memory operation failed",
		zap.String("op", op),
		zap.String("client_id", ac.ClientID),
		zap.String("request_id", ac.RequestID),
		zap.String("key", key),
		zap.Error(err),
	)
}

// publish hands the event to the publisher. Failures are logged and never
// change the operation's outcome.
func (s *Service) publish(ctx context.Context, eventType string, ac *auth.Context, key string) {
	if s.publisher == nil {
		return
	}

	event := eventstream.NewMemoryEvent(eventType, ac.ClientID, s.namespacer.Prefix(), key)
	event.RequestID = ac.RequestID

	if err := s.publisher.PublishMemory(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish memory event",
			zap.String("event_type", eventType),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}
