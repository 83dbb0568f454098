// Package app provides the application context and dependency management
// for the beacon CLI. It centralizes configuration, logging, and the client
// lifecycle so individual commands stay small.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quoteline/beacon"
)

// App represents the beacon CLI application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Beacon client (lazy-initialized, singleton)
	mu     sync.RWMutex
	client beacon.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	return app, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Client returns the beacon client, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Client() (beacon.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	c, err := beacon.New(a.buildClientOptions()...)
	if err != nil {
		return nil, err
	}

	a.client = c
	return c, nil
}

// Shutdown performs graceful shutdown: it stops background refreshes and
// closes the local store.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() []beacon.Option {
	opts := []beacon.Option{
		beacon.WithBaseURL(a.config.BaseURL),
		beacon.WithStorePath(a.config.StorePath),
		beacon.WithLogger(a.logger),
	}

	if a.config.TTL > 0 {
		opts = append(opts, beacon.WithTTL(a.config.TTL))
	}
	if a.config.Concurrency > 0 {
		opts = append(opts, beacon.WithConcurrency(a.config.Concurrency))
	}

	return opts
}
