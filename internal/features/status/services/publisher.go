package services

import (
	"context"
	"time"

	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/store"
)

// DefaultServices is the synthetic health block shown when none is configured
func DefaultServices() map[string]models.ServiceHealth {
	return map[string]models.ServiceHealth{
		"vibecode": {Status: "operational", Uptime: "99.9%", ResponseTime: "142ms"},
		"office":   {Status: "operational", Uptime: "99.8%", ResponseTime: "89ms"},
		"main":     {Status: "operational", Uptime: "99.9%", ResponseTime: "76ms"},
	}
}

// ViewConfig controls how the cached status view is built and kept
type ViewConfig struct {
	Limit    int
	CacheTTL time.Duration
	Services map[string]models.ServiceHealth
}

// DefaultViewConfig returns the view defaults
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		Limit:    20,
		CacheTTL: 30 * time.Minute,
		Services: DefaultServices(),
	}
}

// publisher persists a new history together with the view derived from it
type publisher struct {
	repo   *store.Repository
	config ViewConfig
	now    func() time.Time
}

// publish writes history (no expiry) then the view built from it (CacheTTL)
func (p *publisher) publish(ctx context.Context, history []models.Activity, loc models.LocationState) (models.StatusView, error) {
	view := models.BuildStatusView(history, loc, p.config.Services, p.config.Limit, p.now())

	if err := p.repo.PutHistory(ctx, history); err != nil {
		return models.StatusView{}, err
	}
	if err := p.repo.PutStatusView(ctx, view, p.config.CacheTTL); err != nil {
		return models.StatusView{}, err
	}
	return view, nil
}
