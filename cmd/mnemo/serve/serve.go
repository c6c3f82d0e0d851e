// Package servecmder provides the serve command that runs the mnemo server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/api"
	mcpapi "github.com/papercomputeco/mnemo/api/mcp"
	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/config"
	"github.com/papercomputeco/mnemo/pkg/logger"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/namespace"
)

type ServeCommander struct {
	flags     config.FlagSet
	configDir string
	debug     bool
	jsonLogs  bool
	logFile   string

	backend      string
	namespace    string
	sqlitePath   string
	postgresDSN  string
	redisAddr    string
	timeout      string
	maxRetries   uint
	authProvider string
	tokensFile   string
	listen       string
	transport    string
	token        string
	events       string
	brokers      string
	topic        string

	cfg    *config.Config
	logger *zap.Logger
}

var serveFlags = config.FlagSet{
	config.FlagBackend:       {Name: "backend", Shorthand: "b", ViperKey: "storage.backend", Description: "Storage backend (memory, redis, sqlite, postgres)"},
	config.FlagNamespace:     {Name: "namespace", ViperKey: "storage.namespace", Description: "Key prefix every memory is stored under"},
	config.FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (sqlite backend)"},
	config.FlagPostgres:      {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string (postgres backend)"},
	config.FlagRedisAddr:     {Name: "redis-addr", ViperKey: "storage.redis_addr", Description: "Redis host:port (redis backend)"},
	config.FlagStoreTimeout:  {Name: "storage-timeout", ViperKey: "storage.timeout", Description: "Timeout for a single storage attempt"},
	config.FlagMaxRetries:    {Name: "max-retries", ViperKey: "storage.max_retries", Description: "Retries for transient storage failures"},
	config.FlagAuthProvider:  {Name: "auth-provider", ViperKey: "auth.provider", Description: "Token registry (static, jwt)"},
	config.FlagTokensFile:    {Name: "tokens-file", ViperKey: "auth.tokens_file", Description: "Path to tokens.toml (static provider)"},
	config.FlagAPIListen:     {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the HTTP server to listen on"},
	config.FlagTransport:     {Name: "transport", Shorthand: "t", ViperKey: "mcp.transport", Description: "MCP transport (http, stdio)"},
	config.FlagMCPToken:      {Name: "token", ViperKey: "mcp.token", Description: "Bearer token presented for stdio sessions"},
	config.FlagEventProvider: {Name: "events", ViperKey: "eventstream.provider", Description: "Memory event sink (nop, kafka)"},
	config.FlagBrokers:       {Name: "brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	config.FlagTopic:         {Name: "topic", ViperKey: "eventstream.topic", Description: "Kafka topic for memory events"},
}

const serveLongDesc string = `Run the mnemo memory server.

Over the http transport the REST API and the MCP streamable HTTP endpoint
(/mcp) are served together. Over the stdio transport MCP is spoken on
stdin/stdout and every call presents the configured --token.

Settings resolve from flags, then MNEMO_* environment variables, then
config.toml, then defaults.

Examples:
  mnemo serve
  mnemo serve --backend sqlite --sqlite ./mnemo.db
  mnemo serve --transport stdio --token "$MNEMO_TOKEN"
  mnemo serve --events kafka --brokers localhost:9092`

const serveShortDesc string = "Run the mnemo server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{flags: serveFlags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.resolveConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagBackend, &cmder.backend)
	config.AddStringFlag(cmd, cmder.flags, config.FlagNamespace, &cmder.namespace)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedisAddr, &cmder.redisAddr)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStoreTimeout, &cmder.timeout)
	config.AddUintFlag(cmd, cmder.flags, config.FlagMaxRetries, &cmder.maxRetries)
	config.AddStringFlag(cmd, cmder.flags, config.FlagAuthProvider, &cmder.authProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTokensFile, &cmder.tokensFile)
	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTransport, &cmder.transport)
	config.AddStringFlag(cmd, cmder.flags, config.FlagMCPToken, &cmder.token)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventProvider, &cmder.events)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTopic, &cmder.topic)
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Emit JSON structured logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// resolveConfig merges flags, environment, config.toml and defaults.
func (c *ServeCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(c.flags))
	for k := range c.flags {
		keys = append(keys, k)
	}
	config.BindRegisteredFlags(v, cmd, c.flags, keys)

	c.cfg, err = config.FromViper(v)
	return err
}

func (c *ServeCommander) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// stdout carries the MCP stream over stdio, so logs go to stderr there.
	out := os.Stdout
	if c.cfg.MCP.Transport == config.TransportStdio {
		out = os.Stderr
	}
	var (
		closeLog func()
		err      error
	)
	c.logger, closeLog, err = c.newLogger(out)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = c.logger.Sync() }()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	svc, cleanup, err := c.buildService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpServer, err := mcpapi.NewServer(mcpapi.Config{
		Service: svc,
		Token:   c.cfg.MCP.Token,
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if c.cfg.MCP.Transport == config.TransportStdio {
		return c.runStdio(ctx, cancel, mcpServer, sigChan)
	}
	return c.runHTTP(svc, mcpServer, sigChan)
}

// newLogger builds the console logger on out. When a log file is set, JSON
// entries are teed into it as well.
func (c *ServeCommander) newLogger(out io.Writer) (*zap.Logger, func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithWriter(out),
	)
	if c.logFile == "" {
		return console, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(c.logFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

func (c *ServeCommander) runStdio(ctx context.Context, cancel context.CancelFunc, mcpServer *mcpapi.Server, sigChan <-chan os.Signal) error {
	c.logger.Info("serving MCP over stdio",
		zap.String("namespace", c.cfg.Storage.Namespace),
	)

	go func() {
		select {
		case sig := <-sigChan:
			c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	err := mcpServer.RunStdio(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio error: %w", err)
	}
	return nil
}

func (c *ServeCommander) runHTTP(svc *memory.Service, mcpServer *mcpapi.Server, sigChan <-chan os.Signal) error {
	apiServer, err := api.NewServer(api.Config{ListenAddr: c.cfg.API.Listen}, svc, mcpServer.Handler(), c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

// buildService wires storage, auth and events into a memory.Service. The
// returned cleanup releases everything in reverse order.
func (c *ServeCommander) buildService(ctx context.Context) (*memory.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	driver, err := newStorageDriver(ctx, c.cfg.Storage, c.logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := driver.Close(); err != nil {
			c.logger.Warn("closing storage driver", zap.Error(err))
		}
	})

	registry, err := newRegistry(ctx, c.cfg.Auth, c.configDir, c.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	controller, err := auth.NewController(registry, c.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ns, err := namespace.New(driver, c.cfg.Storage.Namespace, c.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	publisher, err := newPublisher(c.cfg.EventStream, c.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing event publisher", zap.Error(err))
		}
	})

	svc, err := memory.NewService(&memory.Config{
		Controller: controller,
		Namespacer: ns,
		Publisher:  publisher,
		Logger:     c.logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}
