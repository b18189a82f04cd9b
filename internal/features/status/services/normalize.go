package services

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"quarterly-status/internal/features/status/feeds"
	"quarterly-status/internal/features/status/models"
)

// AllRepositoriesFeed names the account-wide commit feed, whose entries are
// described by their commit message rather than the repository name.
const AllRepositoriesFeed = "all-repositories"

// Feed categories
const (
	CategoryContent  = "content"
	CategoryResearch = "research"
)

const (
	shortHashLen = 8
	rssIDLen     = 10
)

// CommitActivityID builds the identity of a commit-feed activity
func CommitActivityID(hash string) string {
	return "github-" + shortHash(hash)
}

// RSSActivityID builds the identity of a feed item from its link
func RSSActivityID(link string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(link))
	return "rss-" + encoded[:min(rssIDLen, len(encoded))]
}

// LocationActivityID builds the identity of a manual location update
func LocationActivityID(now time.Time) string {
	return fmt.Sprintf("location-%d", now.UnixMilli())
}

func shortHash(hash string) string {
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}
	return hash
}

// CommitActivity normalizes one commit-feed entry
func CommitActivity(c feeds.Commit, repository string) models.Activity {
	hash := c.Hash()

	description := c.Title
	if repository != AllRepositoriesFeed {
		name := repository
		if _, after, ok := strings.Cut(repository, "/"); ok && after != "" {
			name = after
		}
		description = "Pushed commit to " + name
	}

	return models.Activity{
		ID:          CommitActivityID(hash),
		Type:        models.ActivityDevelopment,
		Title:       "Development Activity",
		Description: description,
		Timestamp:   c.Updated.UTC(),
		Source:      models.SourceGitHub,
		Metadata: map[string]any{
			"repository":    repository,
			"commitHash":    shortHash(hash),
			"commitMessage": c.Title,
			"link":          c.Link,
			"author":        c.Author,
		},
	}
}

// ItemActivity normalizes one generic feed item published by source
func ItemActivity(item feeds.Item, source, category string) models.Activity {
	a := models.Activity{
		ID:        RSSActivityID(item.Link),
		Timestamp: item.Published.UTC(),
		Source:    source,
		Metadata: map[string]any{
			"title": item.Title,
			"link":  item.Link,
		},
	}

	if category == CategoryResearch {
		a.Type = models.ActivityResearch
		a.Title = "Research Activity"
		a.Description = "Watched: " + item.Title
	} else {
		a.Type = models.ActivityContent
		a.Title = "Content Publication"
		a.Description = "Published: " + item.Title
	}
	return a
}

// LocationActivity synthesizes the activity recorded for a manual location update.
// supplied is the caller's coordinates, kept verbatim in the metadata.
func LocationActivity(loc models.LocationState, activity string, supplied *models.Coordinates, now time.Time) models.Activity {
	title := "Location Update"
	description := "Arrived in " + loc.Name
	if activity != "" {
		title = "Activity Update"
		description = fmt.Sprintf("%s in %s", activity, loc.Name)
	}

	metadata := map[string]any{
		"location": loc.Name,
	}
	if activity != "" {
		metadata["activity"] = activity
	}
	if supplied != nil {
		metadata["coordinates"] = *supplied
	}

	a := models.Activity{
		ID:          LocationActivityID(now),
		Type:        models.ActivityLocation,
		Title:       title,
		Description: description,
		Timestamp:   loc.Timestamp.UTC(),
		Source:      models.SourceManual,
		Metadata:    metadata,
	}
	return a.StampLocation(loc)
}
