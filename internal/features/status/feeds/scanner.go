package feeds

import (
	"iter"
	"regexp"
	"strings"
	"sync"
)

var (
	itemBlockRe  = regexp.MustCompile(`(?is)<item(?:\s[^>]*)?>(.*?)</item>`)
	entryBlockRe = regexp.MustCompile(`(?is)<entry(?:\s[^>]*)?>(.*?)</entry>`)
	cdataRe      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	hrefRe       = regexp.MustCompile(`(?i)<link[^>]+href="([^"]+)"`)

	tagRes sync.Map // tag name -> *regexp.Regexp
)

// Scanner is a lightweight pattern-based feed reader. It tolerates
// documents that are not well-formed XML, which real-world feeds often are.
type Scanner struct{}

// NewScanner creates a Scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// Items implements Parser
func (s *Scanner) Items(doc []byte) (iter.Seq[Item], error) {
	text := string(doc)
	blockRe := itemBlockRe
	if !strings.Contains(strings.ToLower(text), "<item") {
		blockRe = entryBlockRe
	}

	seq := func(yield func(Item) bool) {
		for _, block := range blockRe.FindAllStringSubmatch(text, -1) {
			item, ok := scanItem(block[1])
			if !ok {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
	return Take(seq, MaxItems), nil
}

// Commits implements Parser
func (s *Scanner) Commits(doc []byte) (iter.Seq[Commit], error) {
	text := string(doc)
	return func(yield func(Commit) bool) {
		for _, block := range entryBlockRe.FindAllStringSubmatch(text, -1) {
			commit, ok := scanCommit(block[1])
			if !ok {
				continue
			}
			if !yield(commit) {
				return
			}
		}
	}, nil
}

func scanItem(block string) (Item, bool) {
	title := firstNonEmpty(tagValue(block, "title"), tagValue(block, "description"), DefaultItemTitle)
	link := linkValue(block)
	date := firstNonEmpty(tagValue(block, "pubDate"), tagValue(block, "updated"), tagValue(block, "published"))
	if link == "" || date == "" {
		return Item{}, false
	}

	published, err := ParseDate(date)
	if err != nil {
		return Item{}, false
	}

	return Item{
		Title:     stripCDATA(title),
		Link:      link,
		Published: published,
	}, true
}

func scanCommit(block string) (Commit, bool) {
	title := tagValue(block, "title")
	updated := firstNonEmpty(tagValue(block, "updated"), tagValue(block, "published"))
	id := tagValue(block, "id")
	if title == "" || updated == "" || id == "" {
		return Commit{}, false
	}

	ts, err := ParseDate(updated)
	if err != nil {
		return Commit{}, false
	}

	return Commit{
		ID:      id,
		Title:   strings.TrimSpace(stripCDATA(title)),
		Link:    linkValue(block),
		Author:  tagValue(block, "name"),
		Updated: ts,
	}, true
}

// tagValue returns the trimmed text of the first <tag> element in block
func tagValue(block, tag string) string {
	m := tagRe(tag).FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// linkValue reads <link>text</link>, falling back to an Atom href attribute
func linkValue(block string) string {
	if link := tagValue(block, "link"); link != "" {
		return link
	}
	if m := hrefRe.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	return ""
}

func tagRe(tag string) *regexp.Regexp {
	if re, ok := tagRes.Load(tag); ok {
		return re.(*regexp.Regexp)
	}
	// Self-closing elements such as <link href="..."/> carry no text
	re := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `(?:\s[^>]*[^/>])?>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	actual, _ := tagRes.LoadOrStore(tag, re)
	return actual.(*regexp.Regexp)
}

func stripCDATA(s string) string {
	return cdataRe.ReplaceAllString(s, "$1")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
