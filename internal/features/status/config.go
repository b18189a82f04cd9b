package status

import (
	"fmt"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/feeds"
)

// Config represents status feature configuration
type Config struct {
	Enabled         bool
	Store           core.StoreConfig
	FreshnessWindow time.Duration
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	ViewLimit       int
	UserAgent       string
	SourcesFile     string
	FeedParser      string
	GitHubToken     string
	GeocodeEnabled  bool
	GeocodeURL      string
	ExposeErrors    bool
}

// NewConfig creates status config from core config
func NewConfig(coreConfig *core.Config) *Config {
	s := coreConfig.Features.Status
	return &Config{
		Enabled:         s.Enabled,
		Store:           coreConfig.Store,
		FreshnessWindow: s.FreshnessWindow,
		CacheTTL:        s.CacheTTL,
		RefreshInterval: s.RefreshInterval,
		FetchTimeout:    s.FetchTimeout,
		ViewLimit:       s.ViewLimit,
		UserAgent:       s.UserAgent,
		SourcesFile:     s.SourcesFile,
		FeedParser:      s.FeedParser,
		GitHubToken:     s.GitHubToken,
		GeocodeEnabled:  s.GeocodeEnabled,
		GeocodeURL:      s.GeocodeURL,
		ExposeErrors:    coreConfig.Server.ExposeErrors,
	}
}

// Validate validates the status configuration
func (c *Config) Validate() error {
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.ViewLimit < 1 || c.ViewLimit > 500 {
		return fmt.Errorf("view limit must be between 1 and 500")
	}
	if _, err := feeds.NewParser(c.FeedParser); err != nil {
		return err
	}
	if c.GeocodeEnabled && c.GeocodeURL == "" {
		return fmt.Errorf("geocode URL is required when geocoding is enabled")
	}
	return nil
}
