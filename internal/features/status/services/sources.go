package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/feeds"
	"quarterly-status/internal/features/status/models"
)

const (
	perFeedLimit   = 3
	commitsMaximum = 10
	feedAccept     = "application/rss+xml, application/atom+xml, application/xml, text/xml"
)

// Source produces candidate activities for one refresh
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Activity, error)
}

// CommitFeed is a source-control Atom commit feed
type CommitFeed struct {
	URL        string
	Repository string
}

// ContentFeed is a generic RSS or Atom feed
type ContentFeed struct {
	URL      string
	Source   string
	Category string
}

// getter is the slice of Fetcher used by feed sources
type getter interface {
	Get(ctx context.Context, rawURL, accept string) ([]byte, error)
}

// fetchFeeds fetches every url concurrently and converts each body with fn.
// A failing feed is logged and skipped; the returned error is non-nil only
// when every feed failed.
func fetchFeeds[F any](ctx context.Context, logger *core.Logger, fetcher getter, list []F, feedURL func(F) string, fn func(F, []byte) ([]models.Activity, error)) ([]models.Activity, error) {
	tasks := make([]func(context.Context) ([]models.Activity, error), len(list))
	for i, feed := range list {
		tasks[i] = func(ctx context.Context) ([]models.Activity, error) {
			body, err := fetcher.Get(ctx, feedURL(feed), feedAccept)
			if err != nil {
				return nil, err
			}
			return fn(feed, body)
		}
	}

	var (
		activities []models.Activity
		errs       []error
	)
	for i, res := range SettleAll(ctx, 0, tasks) {
		if res.Err != nil {
			logger.Warn("Feed fetch failed", "url", feedURL(list[i]), "error", res.Err)
			errs = append(errs, res.Err)
			continue
		}
		activities = append(activities, res.Value...)
	}

	if len(list) > 0 && len(errs) == len(list) {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(list), errors.Join(errs...))
	}
	return activities, nil
}

// CommitFeedSource turns commit feeds into development activities
type CommitFeedSource struct {
	fetcher getter
	parser  feeds.Parser
	feeds   []CommitFeed
	logger  *core.Logger
}

// NewCommitFeedSource creates a commit feed source
func NewCommitFeedSource(fetcher getter, parser feeds.Parser, list []CommitFeed, logger *core.Logger) *CommitFeedSource {
	return &CommitFeedSource{
		fetcher: fetcher,
		parser:  parser,
		feeds:   list,
		logger:  logger.With("source", "commits"),
	}
}

// Name implements Source
func (s *CommitFeedSource) Name() string { return "commits" }

// Fetch takes the first entries of each feed, drops duplicate ids and keeps
// the newest commitsMaximum.
func (s *CommitFeedSource) Fetch(ctx context.Context) ([]models.Activity, error) {
	all, err := fetchFeeds(ctx, s.logger, s.fetcher, s.feeds,
		func(f CommitFeed) string { return f.URL },
		func(f CommitFeed, body []byte) ([]models.Activity, error) {
			commits, err := s.parser.Commits(body)
			if err != nil {
				return nil, err
			}
			var out []models.Activity
			for c := range feeds.Take(commits, perFeedLimit) {
				out = append(out, CommitActivity(c, f.Repository))
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(all))
	unique := make([]models.Activity, 0, len(all))
	for _, a := range all {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		unique = append(unique, a)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Timestamp.After(unique[j].Timestamp)
	})
	if len(unique) > commitsMaximum {
		unique = unique[:commitsMaximum]
	}
	return unique, nil
}

// ContentFeedSource turns generic feeds into content and research activities
type ContentFeedSource struct {
	fetcher getter
	parser  feeds.Parser
	feeds   []ContentFeed
	logger  *core.Logger
}

// NewContentFeedSource creates a content feed source
func NewContentFeedSource(fetcher getter, parser feeds.Parser, list []ContentFeed, logger *core.Logger) *ContentFeedSource {
	return &ContentFeedSource{
		fetcher: fetcher,
		parser:  parser,
		feeds:   list,
		logger:  logger.With("source", "feeds"),
	}
}

// Name implements Source
func (s *ContentFeedSource) Name() string { return "feeds" }

// Fetch implements Source
func (s *ContentFeedSource) Fetch(ctx context.Context) ([]models.Activity, error) {
	return fetchFeeds(ctx, s.logger, s.fetcher, s.feeds,
		func(f ContentFeed) string { return f.URL },
		func(f ContentFeed, body []byte) ([]models.Activity, error) {
			items, err := s.parser.Items(body)
			if err != nil {
				return nil, err
			}
			var out []models.Activity
			for item := range feeds.Take(items, perFeedLimit) {
				out = append(out, ItemActivity(item, f.Source, f.Category))
			}
			return out, nil
		})
}
