// Package feeds extracts candidate entries from RSS and Atom documents.
//
// Parsing is best-effort: an entry missing a required field or carrying an
// unparseable date is skipped, never reported. Only a document that cannot be
// read at all produces an error.
package feeds

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// MaxItems caps the generic items yielded per document
const MaxItems = 5

// DefaultItemTitle labels items that carry neither a title nor a description
const DefaultItemTitle = "Post"

// UnknownCommitHash is used when a commit id carries no recognised separator
const UnknownCommitHash = "unknown"

// Item is one candidate entry from a generic RSS or Atom feed
type Item struct {
	Title     string
	Link      string
	Published time.Time
}

// Commit is one entry from a source-control Atom commit feed
type Commit struct {
	ID      string
	Title   string
	Link    string
	Author  string
	Updated time.Time
}

// Hash derives the commit-hash-like token from the entry id
func (c Commit) Hash() string {
	return CommitHash(c.ID)
}

// commitIDSeparators precede the hash in commit feed entry ids, e.g.
// "tag:github.com,2008:Grit::Commit/0f3c..." or "...:PushEvent/push/123".
var commitIDSeparators = []string{"Commit/", "push/"}

// CommitHash returns the token following the first known separator in id
func CommitHash(id string) string {
	for _, sep := range commitIDSeparators {
		if !strings.Contains(id, sep) {
			continue
		}
		if hash := strings.Split(id, sep)[1]; hash != "" {
			return hash
		}
		return UnknownCommitHash
	}
	return UnknownCommitHash
}

// Parser extracts candidate entries from a raw feed document
type Parser interface {
	// Items yields at most MaxItems generic entries in document order
	Items(doc []byte) (iter.Seq[Item], error)

	// Commits yields commit entries in document order
	Commits(doc []byte) (iter.Seq[Commit], error)
}

// Parser names accepted by NewParser
const (
	ParserScanner = "scanner"
	ParserGofeed  = "gofeed"
)

// NewParser returns the parser registered under name
func NewParser(name string) (Parser, error) {
	switch name {
	case "", ParserScanner:
		return NewScanner(), nil
	case ParserGofeed:
		return NewGofeedParser(), nil
	default:
		return nil, fmt.Errorf("unknown feed parser %q", name)
	}
}

// Take yields at most n values from seq
func Take[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n <= 0 {
			return
		}
		i := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			i++
			if i >= n {
				return
			}
		}
	}
}
