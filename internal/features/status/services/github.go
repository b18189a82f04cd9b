package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/models"
)

// githubEventLimit is how many of the most recent events are considered
const githubEventLimit = 5

// NewGitHubClient creates a GitHub API client authenticated with token.
// An empty baseURL uses the public API.
func NewGitHubClient(ctx context.Context, token, baseURL, userAgent string) (*github.Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if userAgent != "" {
		client.UserAgent = userAgent
	}

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API url: %w", err)
		}
		client.BaseURL = u
	}

	return client, nil
}

// GitHubEventsSource reads push and release events from a user's public timeline
type GitHubEventsSource struct {
	client *github.Client
	user   string
	logger *core.Logger
}

// NewGitHubEventsSource creates a GitHub events source
func NewGitHubEventsSource(client *github.Client, user string, logger *core.Logger) *GitHubEventsSource {
	return &GitHubEventsSource{
		client: client,
		user:   user,
		logger: logger.With("source", "github-events"),
	}
}

// Name implements Source
func (s *GitHubEventsSource) Name() string { return "github-events" }

// Fetch implements Source
func (s *GitHubEventsSource) Fetch(ctx context.Context) ([]models.Activity, error) {
	events, _, err := s.client.Activity.ListEventsPerformedByUser(ctx, s.user, true, &github.ListOptions{PerPage: githubEventLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", s.user, err)
	}

	if len(events) > githubEventLimit {
		events = events[:githubEventLimit]
	}

	var activities []models.Activity
	for _, event := range events {
		activity, ok, err := EventActivity(event)
		if err != nil {
			s.logger.Debug("Skipping event with unreadable payload", "event_id", event.GetID(), "error", err)
			continue
		}
		if ok {
			activities = append(activities, activity)
		}
	}
	return activities, nil
}

// EventActivity normalizes a push or release event. Other event types
// report ok=false.
func EventActivity(event *github.Event) (models.Activity, bool, error) {
	repo := event.GetRepo().GetName()
	ts := event.GetCreatedAt().Time.UTC()

	switch event.GetType() {
	case "PushEvent":
		payload, err := event.ParsePayload()
		if err != nil {
			return models.Activity{}, false, err
		}
		commits := 1
		if push, ok := payload.(*github.PushEvent); ok && len(push.Commits) > 0 {
			commits = len(push.Commits)
		}
		return models.Activity{
			ID:          "github-" + event.GetID(),
			Type:        models.ActivityDevelopment,
			Title:       "Development Activity",
			Description: fmt.Sprintf("Pushed %d commit(s) to %s", commits, repo),
			Timestamp:   ts,
			Source:      models.SourceGitHub,
			Metadata: map[string]any{
				"repository": repo,
				"commits":    commits,
			},
		}, true, nil

	case "ReleaseEvent":
		payload, err := event.ParsePayload()
		if err != nil {
			return models.Activity{}, false, err
		}
		release, ok := payload.(*github.ReleaseEvent)
		if !ok || release.GetRelease().GetTagName() == "" {
			return models.Activity{}, false, fmt.Errorf("release event %s has no tag", event.GetID())
		}
		tag := release.GetRelease().GetTagName()
		return models.Activity{
			ID:          "github-release-" + event.GetID(),
			Type:        models.ActivityDeployment,
			Title:       "Release Published",
			Description: fmt.Sprintf("Released %s for %s", tag, repo),
			Timestamp:   ts,
			Source:      models.SourceGitHub,
			Metadata: map[string]any{
				"repository": repo,
				"version":    tag,
			},
		}, true, nil
	}

	return models.Activity{}, false, nil
}
