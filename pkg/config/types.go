package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/mnemo/pkg/namespace"
)

// Config represents the persistent mnemo configuration stored as config.toml
// in the .mnemo/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Auth        AuthConfig        `toml:"auth"`
	API         APIConfig         `toml:"api"`
	MCP         MCPConfig         `toml:"mcp"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend string `toml:"backend,omitempty"`

	// Namespace prefixes every stored key. Namespaces sharing one backend
	// must not be prefixes of one another.
	Namespace     string `toml:"namespace,omitempty"`
	SQLitePath    string `toml:"sqlite_path,omitempty"`
	PostgresDSN   string `toml:"postgres_dsn,omitempty"`
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`

	// Timeout bounds a single backend attempt, as a Go duration string.
	Timeout    string `toml:"timeout,omitempty"`
	MaxRetries uint   `toml:"max_retries,omitempty"`
}

// AuthConfig selects and configures the token registry.
type AuthConfig struct {
	Provider    string `toml:"provider,omitempty"`
	TokensFile  string `toml:"tokens_file,omitempty"`
	JWTSecret   string `toml:"jwt_secret,omitempty"`
	JWTIssuer   string `toml:"jwt_issuer,omitempty"`
	JWTAudience string `toml:"jwt_audience,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// MCPConfig holds MCP transport settings.
type MCPConfig struct {
	Transport string `toml:"transport,omitempty"`

	// Token is presented for every call when serving over stdio.
	Token string `toml:"token,omitempty"`
}

// EventStreamConfig holds memory event publishing settings.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of Kafka bootstrap addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// mnemo server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	AuthProviderStatic = "static"
	AuthProviderJWT    = "jwt"

	TransportHTTP  = "http"
	TransportStdio = "stdio"

	EventProviderNop   = "nop"
	EventProviderKafka = "kafka"
)

// TimeoutDuration parses the storage timeout.
func (s StorageConfig) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid storage.timeout %q: %w", s.Timeout, err)
	}
	return d, nil
}

// BrokerList splits the configured brokers.
func (e EventStreamConfig) BrokerList() []string {
	var brokers []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func oneOf(key string, allowed ...string) func(string) error {
	return func(v string) error {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("invalid value for %s: %q (valid: %s)", key, v, strings.Join(allowed, ", "))
		}
		return nil
	}
}

var (
	validBackend       = oneOf("storage.backend", BackendMemory, BackendRedis, BackendSQLite, BackendPostgres)
	validAuthProvider  = oneOf("auth.provider", AuthProviderStatic, AuthProviderJWT)
	validTransport     = oneOf("mcp.transport", TransportHTTP, TransportStdio)
	validEventProvider = oneOf("eventstream.provider", EventProviderNop, EventProviderKafka)
)

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.backend": {
		get: func(c *Config) string { return c.Storage.Backend },
		set: func(c *Config, v string) error {
			if err := validBackend(v); err != nil {
				return err
			}
			c.Storage.Backend = v
			return nil
		},
	},
	"storage.namespace": {
		get: func(c *Config) string { return c.Storage.Namespace },
		set: func(c *Config, v string) error {
			if v == "" {
				return fmt.Errorf("storage.namespace must not be empty")
			}
			if err := namespace.CheckPrefix(v); err != nil {
				return fmt.Errorf("storage.namespace: %w", err)
			}
			c.Storage.Namespace = v
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get:    func(c *Config) string { return c.Storage.PostgresDSN },
		set:    func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
		secret: true,
	},
	"storage.redis_addr": {
		get: func(c *Config) string { return c.Storage.RedisAddr },
		set: func(c *Config, v string) error { c.Storage.RedisAddr = v; return nil },
	},
	"storage.redis_password": {
		get:    func(c *Config) string { return c.Storage.RedisPassword },
		set:    func(c *Config, v string) error { c.Storage.RedisPassword = v; return nil },
		secret: true,
	},
	"storage.redis_db": {
		get: func(c *Config) string { return strconv.Itoa(c.Storage.RedisDB) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for storage.redis_db: %q", v)
			}
			c.Storage.RedisDB = n
			return nil
		},
	},
	"storage.timeout": {
		get: func(c *Config) string { return c.Storage.Timeout },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for storage.timeout: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("storage.timeout must be positive")
			}
			c.Storage.Timeout = v
			return nil
		},
	},
	"storage.max_retries": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Storage.MaxRetries), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for storage.max_retries: %w", err)
			}
			c.Storage.MaxRetries = uint(n)
			return nil
		},
	},
	"auth.provider": {
		get: func(c *Config) string { return c.Auth.Provider },
		set: func(c *Config, v string) error {
			if err := validAuthProvider(v); err != nil {
				return err
			}
			c.Auth.Provider = v
			return nil
		},
	},
	"auth.tokens_file": {
		get: func(c *Config) string { return c.Auth.TokensFile },
		set: func(c *Config, v string) error { c.Auth.TokensFile = v; return nil },
	},
	"auth.jwt_secret": {
		get:    func(c *Config) string { return c.Auth.JWTSecret },
		set:    func(c *Config, v string) error { c.Auth.JWTSecret = v; return nil },
		secret: true,
	},
	"auth.jwt_issuer": {
		get: func(c *Config) string { return c.Auth.JWTIssuer },
		set: func(c *Config, v string) error { c.Auth.JWTIssuer = v; return nil },
	},
	"auth.jwt_audience": {
		get: func(c *Config) string { return c.Auth.JWTAudience },
		set: func(c *Config, v string) error { c.Auth.JWTAudience = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"mcp.transport": {
		get: func(c *Config) string { return c.MCP.Transport },
		set: func(c *Config, v string) error {
			if err := validTransport(v); err != nil {
				return err
			}
			c.MCP.Transport = v
			return nil
		},
	},
	"mcp.token": {
		get:    func(c *Config) string { return c.MCP.Token },
		set:    func(c *Config, v string) error { c.MCP.Token = v; return nil },
		secret: true,
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if err := validEventProvider(v); err != nil {
				return err
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}
