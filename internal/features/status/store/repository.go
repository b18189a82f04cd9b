package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
)

// Keys of the three records kept by the status service
const (
	KeyStatusView = "status_data"
	KeyHistory    = "all_activities"
	KeyLocation   = "current_location"
)

// Purger is implemented by backends that can drop expired keys eagerly
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Repository reads and writes the typed status records over a KV
type Repository struct {
	kv     KV
	logger *core.Logger
	now    func() time.Time
}

// NewRepository creates a Repository over kv
func NewRepository(kv KV, logger *core.Logger) *Repository {
	return &Repository{kv: kv, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for location defaults
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// History returns the full activity history, newest first.
// An absent history is empty; entries that fail validation are dropped.
func (r *Repository) History(ctx context.Context) ([]models.Activity, error) {
	raw, ok, err := r.kv.Get(ctx, KeyHistory)
	if err != nil {
		return nil, core.NewStoreError("failed to read activity history", err)
	}
	if !ok {
		return []models.Activity{}, nil
	}

	var stored []models.Activity
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, core.NewStoreError("failed to decode activity history", err)
	}

	history := make([]models.Activity, 0, len(stored))
	for _, a := range stored {
		if err := a.Validate(); err != nil {
			r.logger.Warn("Dropping malformed history entry", "error", err)
			continue
		}
		history = append(history, a)
	}
	return history, nil
}

// PutHistory replaces the activity history. It never expires.
func (r *Repository) PutHistory(ctx context.Context, history []models.Activity) error {
	if history == nil {
		history = []models.Activity{}
	}
	return r.putJSON(ctx, KeyHistory, history, 0)
}

// Location returns the current location, or the default if none is stored
func (r *Repository) Location(ctx context.Context) (models.LocationState, error) {
	raw, ok, err := r.kv.Get(ctx, KeyLocation)
	if err != nil {
		return models.LocationState{}, core.NewStoreError("failed to read location", err)
	}
	if !ok {
		return models.DefaultLocation(r.now()), nil
	}

	var loc models.LocationState
	if err := json.Unmarshal([]byte(raw), &loc); err != nil || loc.Name == "" {
		r.logger.Warn("Stored location is malformed, using default", "error", err)
		return models.DefaultLocation(r.now()), nil
	}
	return loc, nil
}

// PutLocation replaces the current location. It never expires.
func (r *Repository) PutLocation(ctx context.Context, loc models.LocationState) error {
	return r.putJSON(ctx, KeyLocation, loc, 0)
}

// StatusView returns the cached view if present and unexpired.
// An undecodable view is treated as a miss.
func (r *Repository) StatusView(ctx context.Context) (*models.StatusView, error) {
	raw, ok, err := r.kv.Get(ctx, KeyStatusView)
	if err != nil {
		return nil, core.NewStoreError("failed to read status view", err)
	}
	if !ok {
		return nil, nil
	}

	var view models.StatusView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		r.logger.Warn("Cached status view is malformed, ignoring", "error", err)
		return nil, nil
	}
	if view.Activities == nil {
		view.Activities = []models.Activity{}
	}
	return &view, nil
}

// PutStatusView caches the view for ttl
func (r *Repository) PutStatusView(ctx context.Context, view models.StatusView, ttl time.Duration) error {
	return r.putJSON(ctx, KeyStatusView, view, ttl)
}

// PurgeExpired drops expired records when the backend supports it
func (r *Repository) PurgeExpired(ctx context.Context) error {
	p, ok := r.kv.(Purger)
	if !ok {
		return nil
	}
	n, err := p.PurgeExpired(ctx)
	if err != nil {
		return core.NewStoreError("failed to purge expired records", err)
	}
	if n > 0 {
		r.logger.Debug("Purged expired records", "count", n)
	}
	return nil
}

// Close releases the underlying store
func (r *Repository) Close() error {
	return r.kv.Close()
}

func (r *Repository) putJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return core.NewInternalError(fmt.Sprintf("failed to encode %s", key), err)
	}
	if err := r.kv.Put(ctx, key, string(data), ttl); err != nil {
		return core.NewStoreError(fmt.Sprintf("failed to write %s", key), err)
	}
	return nil
}
