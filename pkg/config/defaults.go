package config

import "github.com/papercomputeco/mnemo/pkg/namespace"

const (
	defaultBackend    = BackendMemory
	defaultRedisAddr  = "localhost:6379"
	defaultTimeout    = "2s"
	defaultMaxRetries = 3

	defaultAuthProvider = AuthProviderStatic

	defaultAPIListen = ":8081"

	defaultTransport = TransportHTTP

	defaultEventProvider = EventProviderNop
	defaultEventTopic    = "mnemo.memory"

	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend:    defaultBackend,
			Namespace:  namespace.DefaultPrefix,
			RedisAddr:  defaultRedisAddr,
			Timeout:    defaultTimeout,
			MaxRetries: defaultMaxRetries,
		},
		Auth: AuthConfig{
			Provider: defaultAuthProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		MCP: MCPConfig{
			Transport: defaultTransport,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventProvider,
			Topic:    defaultEventTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
