// Package app provides the application context and dependency management
// for the gatelink CLI: configuration, logging and the gateway client.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink"
	"github.com/agentstation/gatelink/internal/appcontext"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/monitoring"
)

// App represents the gatelink application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Gateway client (lazy-initialized, singleton)
	mu     sync.Mutex
	client *gatelink.Client
}

var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the gateway client, creating it on first use. Calls with
// extra options always build a new client.
func (a *App) Client(opts ...gatelink.Option) (*gatelink.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil && len(opts) == 0 {
		return a.client, nil
	}

	client, err := gatelink.New(a.config.GatewayURL, append(a.clientOptions(), opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.GatewayURL, err)
	}
	if len(opts) == 0 {
		a.client = client
	}
	return client, nil
}

// clientOptions builds client options from the configuration.
func (a *App) clientOptions() []gatelink.Option {
	cfg := a.config
	opts := []gatelink.Option{
		gatelink.WithLogger(a.logger),
		gatelink.WithApplicationName(cfg.ApplicationName),
		gatelink.WithPrivatePolling(cfg.PrivatePolling),
		gatelink.WithReadyTimeout(cfg.ReadyTimeout),
		gatelink.WithPolicy(&monitoring.DefaultPolicy{
			RetryInterval: cfg.RetryInterval,
			Logger:        a.logger,
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, gatelink.WithAuthScheme(cfg.AuthScheme, cfg.Token))
	}
	if cfg.QueueCapacity > 0 {
		opts = append(opts, gatelink.WithQueueCapacity(cfg.QueueCapacity))
	}
	if cfg.KeepAlivePeriod > 0 {
		opts = append(opts, gatelink.WithKeepAlivePeriod(cfg.KeepAlivePeriod))
	}
	return opts
}

// Shutdown performs graceful shutdown of the application. Sessions are
// owned and closed by the commands that open them.
func (a *App) Shutdown(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
