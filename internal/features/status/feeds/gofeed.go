package feeds

import (
	"bytes"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// GofeedParser reads feeds through gofeed's universal RSS/Atom/JSON parser.
// Unlike Scanner it rejects documents that are not well-formed.
type GofeedParser struct {
	parser *gofeed.Parser
}

// NewGofeedParser creates a GofeedParser
func NewGofeedParser() *GofeedParser {
	return &GofeedParser{parser: gofeed.NewParser()}
}

func (p *GofeedParser) parse(doc []byte) (*gofeed.Feed, error) {
	feed, err := p.parser.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// Items implements Parser
func (p *GofeedParser) Items(doc []byte) (iter.Seq[Item], error) {
	feed, err := p.parse(doc)
	if err != nil {
		return nil, err
	}

	seq := func(yield func(Item) bool) {
		for _, it := range feed.Items {
			if it == nil || it.Link == "" {
				continue
			}
			published, ok := itemTime(it.PublishedParsed, it.UpdatedParsed)
			if !ok {
				continue
			}
			item := Item{
				Title:     firstNonEmpty(strings.TrimSpace(it.Title), strings.TrimSpace(it.Description), DefaultItemTitle),
				Link:      strings.TrimSpace(it.Link),
				Published: published,
			}
			if !yield(item) {
				return
			}
		}
	}
	return Take(seq, MaxItems), nil
}

// Commits implements Parser
func (p *GofeedParser) Commits(doc []byte) (iter.Seq[Commit], error) {
	feed, err := p.parse(doc)
	if err != nil {
		return nil, err
	}

	return func(yield func(Commit) bool) {
		for _, it := range feed.Items {
			if it == nil || it.GUID == "" || strings.TrimSpace(it.Title) == "" {
				continue
			}
			updated, ok := itemTime(it.UpdatedParsed, it.PublishedParsed)
			if !ok {
				continue
			}
			commit := Commit{
				ID:      it.GUID,
				Title:   strings.TrimSpace(it.Title),
				Link:    it.Link,
				Author:  authorName(it),
				Updated: updated,
			}
			if !yield(commit) {
				return
			}
		}
	}, nil
}

func itemTime(candidates ...*time.Time) (time.Time, bool) {
	for _, t := range candidates {
		if t != nil && !t.IsZero() {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func authorName(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return it.Author.Name
	}
	for _, a := range it.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
