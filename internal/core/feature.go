package core

import (
	"context"
	"net/http"
)

// Feature represents a modular unit of the status service
type Feature interface {
	// Name returns the unique name of the feature
	Name() string

	// Description returns a human-readable description
	Description() string

	// Enabled returns whether this feature is enabled
	Enabled() bool

	// Init prepares storage and other dependencies. It must not start
	// background work; that belongs to Start.
	Init(ctx context.Context) error

	// Start launches long-running background work such as schedulers
	Start(ctx context.Context) error

	// Routes returns the HTTP routes for this feature
	Routes() []Route

	// Jobs returns one-shot jobs runnable outside the HTTP server
	Jobs() []Job

	// Shutdown gracefully shuts down the feature
	Shutdown(ctx context.Context) error
}

// Route represents an HTTP route for a feature
type Route struct {
	Methods []string
	Path    string
	Handler http.HandlerFunc
}

// Job is a named unit of work a feature exposes, e.g. a single refresh
// cycle triggered by an external cron runner.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// BaseFeature provides common functionality for all features
type BaseFeature struct {
	name        string
	description string
	enabled     bool
	logger      *Logger
}

// NewBaseFeature creates a new base feature
func NewBaseFeature(name, description string, enabled bool, logger *Logger) *BaseFeature {
	return &BaseFeature{
		name:        name,
		description: description,
		enabled:     enabled,
		logger:      logger,
	}
}

// Name returns the feature name
func (f *BaseFeature) Name() string {
	return f.name
}

// Description returns the feature description
func (f *BaseFeature) Description() string {
	return f.description
}

// Enabled returns whether the feature is enabled
func (f *BaseFeature) Enabled() bool {
	return f.enabled
}

// Logger returns the feature-specific logger
func (f *BaseFeature) Logger() *Logger {
	return f.logger.ForFeature(f.name)
}

// Default implementations for optional methods
func (f *BaseFeature) Init(ctx context.Context) error {
	f.Logger().Info("Initializing feature", "name", f.name)
	return nil
}

func (f *BaseFeature) Start(ctx context.Context) error {
	return nil
}

func (f *BaseFeature) Routes() []Route {
	return nil
}

func (f *BaseFeature) Jobs() []Job {
	return nil
}

func (f *BaseFeature) Shutdown(ctx context.Context) error {
	f.Logger().Info("Shutting down feature", "name", f.name)
	return nil
}
