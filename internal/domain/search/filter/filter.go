package filter

import (
	"strings"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain/search/daterange"
	"github.com/kailas-cloud/docsearch/internal/domain/search/field"
)

// Filter selects candidate documents for a scan.
type Filter struct {
	field field.Field
	text  string
	dates daterange.Range
}

// New creates a candidate Filter. An empty text matches every document.
func New(f field.Field, text string, dates daterange.Range) Filter {
	return Filter{field: f, text: strings.TrimSpace(text), dates: dates}
}

// Field returns the matched attribute.
func (f Filter) Field() field.Field { return f.field }

// Text returns the trimmed query text.
func (f Filter) Text() string { return f.text }

// Dates returns the created_at window.
func (f Filter) Dates() daterange.Range { return f.dates }

// Terms splits the text into whitespace-separated terms.
func (f Filter) Terms() []string { return strings.Fields(f.text) }

// Matches reports whether a document with the given attributes passes the filter.
//
// title/content: case-insensitive substring of the whole query text.
// full-text: any term appears in title or content.
func (f Filter) Matches(title, content string, createdAt time.Time) bool {
	if !f.dates.Contains(createdAt) {
		return false
	}
	if f.text == "" {
		return true
	}
	switch f.field {
	case field.Content:
		return containsFold(content, f.text)
	case field.FullText:
		for _, term := range f.Terms() {
			if containsFold(title, term) || containsFold(content, term) {
				return true
			}
		}
		return false
	default:
		return containsFold(title, f.text)
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
