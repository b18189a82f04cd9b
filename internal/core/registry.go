package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages all features of the service
type Registry struct {
	features map[string]Feature
	mutex    sync.RWMutex
	logger   *Logger
}

// NewRegistry creates a new feature registry
func NewRegistry(logger *Logger) *Registry {
	return &Registry{
		features: make(map[string]Feature),
		logger:   logger,
	}
}

// Register adds a feature to the registry
func (r *Registry) Register(feature Feature) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := feature.Name()
	if _, exists := r.features[name]; exists {
		return fmt.Errorf("feature %s already registered", name)
	}

	r.features[name] = feature
	r.logger.Info("Registered feature", "name", name, "enabled", feature.Enabled())
	return nil
}

// Get retrieves a feature by name
func (r *Registry) Get(name string) (Feature, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	feature, exists := r.features[name]
	return feature, exists
}

// ListEnabled returns enabled features sorted by name
func (r *Registry) ListEnabled() []Feature {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	features := make([]Feature, 0, len(r.features))
	for _, feature := range r.features {
		if feature.Enabled() {
			features = append(features, feature)
		}
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].Name() < features[j].Name()
	})

	return features
}

// InitAll initializes all enabled features
func (r *Registry) InitAll(ctx context.Context) error {
	for _, feature := range r.ListEnabled() {
		if err := feature.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize feature %s: %w", feature.Name(), err)
		}
		r.logger.LogFeatureEvent(feature.Name(), "initialized")
	}

	return nil
}

// StartAll starts background work for all enabled features
func (r *Registry) StartAll(ctx context.Context) error {
	for _, feature := range r.ListEnabled() {
		if err := feature.Start(ctx); err != nil {
			return fmt.Errorf("failed to start feature %s: %w", feature.Name(), err)
		}
	}

	return nil
}

// ShutdownAll gracefully shuts down all features
func (r *Registry) ShutdownAll(ctx context.Context) error {
	for _, feature := range r.ListEnabled() {
		if err := feature.Shutdown(ctx); err != nil {
			// Continue shutting down other features
			r.logger.LogFeatureError(feature.Name(), "Failed to shutdown feature", err)
		}
	}

	return nil
}

// GetAllRoutes returns all routes from enabled features
func (r *Registry) GetAllRoutes() []Route {
	var allRoutes []Route
	for _, feature := range r.ListEnabled() {
		allRoutes = append(allRoutes, feature.Routes()...)
	}

	return allRoutes
}

// FindJob looks up a job by name across enabled features
func (r *Registry) FindJob(name string) (Job, bool) {
	for _, feature := range r.ListEnabled() {
		for _, job := range feature.Jobs() {
			if job.Name == name {
				return job, true
			}
		}
	}

	return Job{}, false
}
