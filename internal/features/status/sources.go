package status

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/features/status/services"
)

//go:embed sources.yaml
var defaultSources []byte

// Catalogue lists the upstream sources and the synthetic services block
type Catalogue struct {
	CommitFeeds  []CommitFeedEntry       `yaml:"commit_feeds"`
	Feeds        []FeedEntry             `yaml:"feeds"`
	GitHubEvents *GitHubEventsEntry      `yaml:"github_events"`
	Services     map[string]ServiceEntry `yaml:"services"`
}

// CommitFeedEntry is one commit feed in the catalogue
type CommitFeedEntry struct {
	URL        string `yaml:"url"`
	Repository string `yaml:"repository"`
}

// FeedEntry is one generic feed in the catalogue
type FeedEntry struct {
	URL      string `yaml:"url"`
	Source   string `yaml:"source"`
	Category string `yaml:"category"`
}

// GitHubEventsEntry names the user whose public events are polled
type GitHubEventsEntry struct {
	User string `yaml:"user"`
}

// ServiceEntry is one synthetic health entry
type ServiceEntry struct {
	Status       string `yaml:"status"`
	Uptime       string `yaml:"uptime"`
	ResponseTime string `yaml:"response_time"`
}

// LoadSources reads the catalogue at path, or the embedded default when path is empty
func LoadSources(path string) (*Catalogue, error) {
	data := defaultSources
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sources file: %w", err)
		}
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a YAML catalogue
func ParseSources(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}

	for i := range c.Feeds {
		c.Feeds[i].Category = normalizeCategory(c.Feeds[i].Category)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// normalizeCategory maps the legacy "R&D" label onto research
func normalizeCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "r&d", services.CategoryResearch:
		return services.CategoryResearch
	default:
		return services.CategoryContent
	}
}

// Validate checks every entry has what its source needs
func (c *Catalogue) Validate() error {
	for i, f := range c.CommitFeeds {
		if err := validateURL(f.URL); err != nil {
			return fmt.Errorf("commit_feeds[%d]: %w", i, err)
		}
		if f.Repository == "" {
			return fmt.Errorf("commit_feeds[%d]: repository is required", i)
		}
	}
	for i, f := range c.Feeds {
		if err := validateURL(f.URL); err != nil {
			return fmt.Errorf("feeds[%d]: %w", i, err)
		}
		if f.Source == "" {
			return fmt.Errorf("feeds[%d]: source is required", i)
		}
	}
	if c.GitHubEvents != nil && c.GitHubEvents.User == "" {
		return fmt.Errorf("github_events: user is required")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	return nil
}

// CommitFeedList converts the catalogue entries for the commit source
func (c *Catalogue) CommitFeedList() []services.CommitFeed {
	out := make([]services.CommitFeed, len(c.CommitFeeds))
	for i, f := range c.CommitFeeds {
		out[i] = services.CommitFeed{URL: f.URL, Repository: f.Repository}
	}
	return out
}

// ContentFeedList converts the catalogue entries for the content source
func (c *Catalogue) ContentFeedList() []services.ContentFeed {
	out := make([]services.ContentFeed, len(c.Feeds))
	for i, f := range c.Feeds {
		out[i] = services.ContentFeed{URL: f.URL, Source: f.Source, Category: f.Category}
	}
	return out
}

// ServiceHealth returns the services block, or the defaults if none is listed
func (c *Catalogue) ServiceHealth() map[string]models.ServiceHealth {
	if len(c.Services) == 0 {
		return services.DefaultServices()
	}
	out := make(map[string]models.ServiceHealth, len(c.Services))
	for name, s := range c.Services {
		out[name] = models.ServiceHealth{Status: s.Status, Uptime: s.Uptime, ResponseTime: s.ResponseTime}
	}
	return out
}
