package status

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/feeds"
	"quarterly-status/internal/features/status/handlers"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/services"
	"quarterly-status/internal/features/status/store"
)

// Options replaces parts of the feature's default wiring
type Options struct {
	// KV is used instead of opening the configured store
	KV store.KV
	// Sources are used instead of those built from the catalogue
	Sources []services.Source
	// Geocoder is used instead of the configured Nominatim endpoint
	Geocoder services.Geocoder
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

// Feature represents the status aggregation feature
type Feature struct {
	*core.BaseFeature
	config  *Config
	options Options

	repo      *store.Repository
	refresher *services.Refresher
	locations *services.LocationService
	history   *services.HistoryReader
	scheduler *services.Scheduler
	handlers  *handlers.Handlers
}

// NewFeature creates a new status feature. Nothing is opened until Init.
func NewFeature(logger *core.Logger, config *Config, options Options) *Feature {
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Feature{
		BaseFeature: core.NewBaseFeature("status", "Activity status aggregator", config.Enabled, logger),
		config:      config,
		options:     options,
	}
}

// Init opens the store and wires the services
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	if err := f.config.Validate(); err != nil {
		return core.NewConfigurationError("invalid status configuration", err)
	}

	logger := f.Logger()

	catalogue, err := LoadSources(f.config.SourcesFile)
	if err != nil {
		return core.NewConfigurationError("invalid source catalogue", err)
	}

	kv := f.options.KV
	if kv == nil {
		kv, err = store.Open(ctx, f.config.Store, logger)
		if err != nil {
			return err
		}
	}
	f.repo = store.NewRepository(kv, logger).WithClock(f.options.Now)

	sources := f.options.Sources
	if sources == nil {
		sources, err = f.buildSources(ctx, catalogue, logger)
		if err != nil {
			return err
		}
	}

	view := services.ViewConfig{
		Limit:    f.config.ViewLimit,
		CacheTTL: f.config.CacheTTL,
		Services: catalogue.ServiceHealth(),
	}

	f.refresher = services.NewRefresher(f.repo, sources, services.RefresherConfig{
		FreshnessWindow: f.config.FreshnessWindow,
		SourceTimeout:   2 * f.config.FetchTimeout,
		View:            view,
	}, logger).WithClock(f.options.Now)

	f.locations = services.NewLocationService(f.repo, view, f.geocoder(), logger).WithClock(f.options.Now)
	f.history = services.NewHistoryReader(f.repo)
	f.scheduler = services.NewScheduler(f.refresher, f.repo, f.config.RefreshInterval, logger)
	f.handlers = handlers.NewHandlers(logger, f.refresher, f.locations, f.history, f.config.ExposeErrors)

	logger.Info("Status feature initialized", "sources", len(sources), "parser", f.config.FeedParser)
	return nil
}

func (f *Feature) buildSources(ctx context.Context, catalogue *Catalogue, logger *core.Logger) ([]services.Source, error) {
	parser, err := feeds.NewParser(f.config.FeedParser)
	if err != nil {
		return nil, core.NewConfigurationError("invalid feed parser", err)
	}

	fetcherConfig := services.DefaultFetcherConfig()
	fetcherConfig.UserAgent = f.config.UserAgent
	fetcherConfig.Timeout = f.config.FetchTimeout
	fetcher := services.NewFetcher(fetcherConfig)

	var sources []services.Source
	if len(catalogue.CommitFeeds) > 0 {
		sources = append(sources, services.NewCommitFeedSource(fetcher, parser, catalogue.CommitFeedList(), logger))
	}

	if catalogue.GitHubEvents != nil {
		if f.config.GitHubToken == "" {
			logger.Info("No GitHub token provided, skipping events source")
		} else {
			client, err := services.NewGitHubClient(ctx, f.config.GitHubToken, "", f.config.UserAgent)
			if err != nil {
				return nil, core.NewConfigurationError("invalid GitHub client", err)
			}
			sources = append(sources, services.NewGitHubEventsSource(client, catalogue.GitHubEvents.User, logger))
		}
	}

	if len(catalogue.Feeds) > 0 {
		sources = append(sources, services.NewContentFeedSource(fetcher, parser, catalogue.ContentFeedList(), logger))
	}

	return sources, nil
}

func (f *Feature) geocoder() services.Geocoder {
	if f.options.Geocoder != nil {
		return f.options.Geocoder
	}
	if !f.config.GeocodeEnabled {
		return nil
	}
	return services.NewNominatimGeocoder(f.config.GeocodeURL, f.config.UserAgent, f.config.FetchTimeout)
}

// Start launches the refresh scheduler
func (f *Feature) Start(ctx context.Context) error {
	if f.scheduler == nil {
		return fmt.Errorf("status feature not initialized")
	}
	if err := f.scheduler.Start(ctx); err != nil {
		return core.NewFeatureError(f.Name(), "failed to start scheduler", err)
	}
	return nil
}

// Routes returns the HTTP routes for the status feature
func (f *Feature) Routes() []core.Route {
	if f.handlers == nil {
		return nil
	}
	return []core.Route{
		{Methods: []string{http.MethodGet}, Path: "/api/status", Handler: f.handlers.GetStatus},
		{Methods: []string{http.MethodGet, http.MethodPost}, Path: "/api/refresh", Handler: f.handlers.Refresh},
		{Methods: []string{http.MethodPost}, Path: "/api/location", Handler: f.handlers.UpdateLocation},
		{Methods: []string{http.MethodGet}, Path: "/api/activities", Handler: f.handlers.ListActivities},
	}
}

// Jobs returns the one-shot refresh job
func (f *Feature) Jobs() []core.Job {
	return []core.Job{
		{
			Name: "refresh",
			Run: func(ctx context.Context) error {
				if f.refresher == nil {
					return fmt.Errorf("status feature not initialized")
				}
				res, err := f.refresher.Refresh(ctx)
				if err != nil {
					return err
				}
				f.Logger().Info("Refresh job finished", "run_id", res.RunID, "appended", len(res.Appended), "failed_sources", len(res.Failed))
				return nil
			},
		},
	}
}

// SetLocation records a manual location update outside of HTTP
func (f *Feature) SetLocation(ctx context.Context, update models.LocationUpdate) (models.LocationState, error) {
	if f.locations == nil {
		return models.LocationState{}, fmt.Errorf("status feature not initialized")
	}
	return f.locations.Set(ctx, update)
}

// Shutdown stops the scheduler and closes the store
func (f *Feature) Shutdown(ctx context.Context) error {
	f.Logger().Info("Shutting down status feature")

	if f.scheduler != nil {
		if err := f.scheduler.Stop(ctx); err != nil {
			f.Logger().Error("Failed to stop status scheduler", "error", err)
		}
	}
	if f.repo != nil {
		if err := f.repo.Close(); err != nil {
			f.Logger().Error("Failed to close store", "error", err)
		}
	}

	return f.BaseFeature.Shutdown(ctx)
}
