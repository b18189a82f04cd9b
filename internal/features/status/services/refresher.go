package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/store"
)

// RefresherConfig holds the staleness policy of the status view
type RefresherConfig struct {
	// FreshnessWindow is how long a cached view is served without refreshing
	FreshnessWindow time.Duration
	// SourceTimeout bounds each source; zero means no per-source bound
	SourceTimeout time.Duration
	View          ViewConfig
}

// DefaultRefresherConfig returns the refresher defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		FreshnessWindow: 10 * time.Minute,
		SourceTimeout:   30 * time.Second,
		View:            DefaultViewConfig(),
	}
}

// RefreshResult summarises one refresh cycle
type RefreshResult struct {
	RunID     string
	View      models.StatusView
	Appended  []models.Activity
	Failed    []string
	Succeeded []string
}

// Refresher pulls every source, merges the results into history and
// republishes the status view.
//
// Concurrent refreshes are not serialised: each rewrites the full history
// snapshot and the last write wins.
type Refresher struct {
	repo      *store.Repository
	sources   []Source
	config    RefresherConfig
	publisher *publisher
	logger    *core.Logger
	now       func() time.Time
}

// NewRefresher creates a refresher over sources, which are merged in order
func NewRefresher(repo *store.Repository, sources []Source, config RefresherConfig, logger *core.Logger) *Refresher {
	r := &Refresher{
		repo:    repo,
		sources: sources,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
	r.publisher = &publisher{repo: repo, config: config.View, now: r.clock}
	return r
}

// WithClock overrides the refresher clock
func (r *Refresher) WithClock(now func() time.Time) *Refresher {
	r.now = now
	return r
}

func (r *Refresher) clock() time.Time { return r.now() }

// Status returns the cached view while it is fresh, refreshing otherwise
func (r *Refresher) Status(ctx context.Context) (models.StatusView, error) {
	cached, err := r.repo.StatusView(ctx)
	if err != nil {
		return models.StatusView{}, err
	}
	if cached != nil && r.now().Sub(cached.UpdatedAt()) < r.config.FreshnessWindow {
		return *cached, nil
	}

	res, err := r.Refresh(ctx)
	if err != nil {
		return models.StatusView{}, err
	}
	return res.View, nil
}

// Refresh runs one full cycle. Source failures are logged and never returned;
// only store failures are.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)
	started := r.now()

	// Activities appended by this run carry the location as it was now,
	// whatever happens to it while sources are in flight.
	snapshot, err := r.repo.Location(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]func(context.Context) ([]models.Activity, error), len(r.sources))
	for i, src := range r.sources {
		tasks[i] = func(ctx context.Context) ([]models.Activity, error) {
			if r.config.SourceTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, r.config.SourceTimeout)
				defer cancel()
			}
			return src.Fetch(ctx)
		}
	}

	result := &RefreshResult{RunID: runID}
	var candidates []models.Activity
	for i, res := range SettleAll(ctx, 0, tasks) {
		name := r.sources[i].Name()
		if res.Err != nil {
			logger.Warn("Source failed", "source", name, "error", res.Err)
			result.Failed = append(result.Failed, name)
			continue
		}
		logger.Debug("Source fetched", "source", name, "count", len(res.Value))
		result.Succeeded = append(result.Succeeded, name)

		for _, a := range res.Value {
			if err := a.Validate(); err != nil {
				logger.Warn("Dropping invalid activity", "source", name, "error", err)
				continue
			}
			candidates = append(candidates, a.StampLocation(snapshot))
		}
	}

	history, err := r.repo.History(ctx)
	if err != nil {
		return nil, err
	}
	merged, appended := Merge(history, candidates)
	result.Appended = appended

	current, err := r.repo.Location(ctx)
	if err != nil {
		return nil, err
	}

	view, err := r.publisher.publish(ctx, merged, current)
	if err != nil {
		return nil, err
	}
	result.View = view

	logger.Info("Refresh completed",
		"candidates", len(candidates),
		"appended", len(appended),
		"history", len(merged),
		"failed_sources", len(result.Failed),
		"duration", r.now().Sub(started),
	)
	return result, nil
}
