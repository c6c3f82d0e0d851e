package servecmder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/auth/jwt"
	"github.com/papercomputeco/mnemo/pkg/auth/static"
	"github.com/papercomputeco/mnemo/pkg/config"
	"github.com/papercomputeco/mnemo/pkg/credentials"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/eventstream/kafka"
	"github.com/papercomputeco/mnemo/pkg/eventstream/nop"
	"github.com/papercomputeco/mnemo/pkg/eventstream/worker"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/storage/inmemory"
	"github.com/papercomputeco/mnemo/pkg/storage/postgres"
	"github.com/papercomputeco/mnemo/pkg/storage/redis"
	"github.com/papercomputeco/mnemo/pkg/storage/sqlite"
)

const eventWorkers = 4

func retryPolicy(c config.StorageConfig) (storage.RetryPolicy, error) {
	timeout, err := c.TimeoutDuration()
	if err != nil {
		return storage.RetryPolicy{}, err
	}

	policy := storage.DefaultRetryPolicy()
	if timeout > 0 {
		policy.Timeout = timeout
	}
	policy.MaxRetries = uint64(c.MaxRetries)
	return policy, nil
}

func newStorageDriver(ctx context.Context, c config.StorageConfig, logger *zap.Logger) (storage.Driver, error) {
	retry, err := retryPolicy(c)
	if err != nil {
		return nil, err
	}

	switch c.Backend {
	case config.BackendMemory, "":
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case config.BackendSQLite:
		if c.SQLitePath == "" {
			return nil, errors.New("storage.sqlite_path is required for the sqlite backend")
		}
		driver, err := sqlite.NewSQLiteDriver(ctx, c.SQLitePath, retry)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		logger.Info("using SQLite storage", zap.String("path", c.SQLitePath))
		return driver, nil

	case config.BackendPostgres:
		if c.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres backend")
		}
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN, retry)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case config.BackendRedis:
		driver, err := redis.NewDriver(ctx, redis.Config{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Retry:    retry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis driver: %w", err)
		}
		logger.Info("using Redis storage", zap.String("addr", c.RedisAddr), zap.Int("db", c.RedisDB))
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q", c.Backend)
	}
}

// newRegistry builds the token registry. The static registry follows edits
// to tokens.toml until ctx is done.
func newRegistry(ctx context.Context, c config.AuthConfig, configDir string, logger *zap.Logger) (auth.Registry, error) {
	switch c.Provider {
	case config.AuthProviderStatic, "":
		mgr, err := credentials.NewManagerFor(configDir, c.TokensFile)
		if err != nil {
			return nil, fmt.Errorf("resolving tokens file: %w", err)
		}

		registry, err := static.NewFromFile(mgr.GetTarget(), logger)
		if err != nil {
			return nil, err
		}
		if registry.Len() == 0 {
			logger.Warn("no client tokens registered, every call will be rejected; add one with \"mnemo token add\"",
				zap.String("path", mgr.GetTarget()),
			)
		}

		if err := registry.Watch(ctx); err != nil {
			logger.Warn("tokens file will not be reloaded", zap.Error(err))
		}
		return registry, nil

	case config.AuthProviderJWT:
		registry, err := jwt.New(jwt.Config{
			Secret:   []byte(c.JWTSecret),
			Issuer:   c.JWTIssuer,
			Audience: c.JWTAudience,
		})
		if err != nil {
			return nil, fmt.Errorf("creating jwt registry: %w", err)
		}
		logger.Info("using jwt token registry", zap.String("issuer", c.JWTIssuer))
		return registry, nil

	default:
		return nil, fmt.Errorf("unknown auth provider: %q", c.Provider)
	}
}

// newPublisher builds the memory event sink. Kafka delivery runs behind a
// worker pool so memory operations never wait on the broker.
func newPublisher(c config.EventStreamConfig, logger *zap.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case config.EventProviderNop, "":
		return nop.NewPublisher(), nil

	case config.EventProviderKafka:
		brokers := c.BrokerList()
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		pool, err := worker.NewPool(&worker.Config{
			Publisher:  publisher,
			NumWorkers: eventWorkers,
			Logger:     logger,
		})
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}

		logger.Info("publishing memory events to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", c.Topic),
		)
		return pool, nil

	default:
		return nil, fmt.Errorf("unknown event provider: %q", c.Provider)
	}
}
