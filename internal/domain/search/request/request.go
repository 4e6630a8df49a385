package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/search/daterange"
	"github.com/kailas-cloud/docsearch/internal/domain/search/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength   = 4096
	DefaultTopK      = 5
	MaxTopK          = 100
	DefaultThreshold = 0.7
	DefaultPage      = 1
	DefaultPageSize  = 10
	MaxPageSize      = 100
)

// Params are the raw, unvalidated search inputs.
// Zero ints and a nil Threshold select the defaults.
type Params struct {
	UserID    string
	Text      string
	Field     field.Field
	TopK      int
	Threshold *float64
	Dates     daterange.Range
	Page      int
	PageSize  int
	Rerank    bool
}

// Request is a validated search query.
type Request struct {
	userID    string
	text      string
	field     field.Field
	topK      int
	threshold float64
	dates     daterange.Range
	page      int
	pageSize  int
	rerank    bool
}

// New validates and normalizes search parameters.
// TopK and PageSize are clamped to their maxima; negative values are rejected.
func New(p Params) (Request, error) {
	if p.UserID == "" {
		return Request{}, domain.ErrMissingUserID
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return Request{}, invalid("text is required")
	}
	if len(text) > MaxQueryLength {
		return Request{}, invalid("text too long (max %d chars)", MaxQueryLength)
	}

	f, ok := field.Parse(string(p.Field))
	if !ok {
		return Request{}, invalid("invalid search_by: %q", f)
	}

	topK, err := positive("top_k", p.TopK, DefaultTopK, MaxTopK)
	if err != nil {
		return Request{}, err
	}
	page, err := positive("page", p.Page, DefaultPage, 0)
	if err != nil {
		return Request{}, err
	}
	pageSize, err := positive("page_size", p.PageSize, DefaultPageSize, MaxPageSize)
	if err != nil {
		return Request{}, err
	}

	threshold := DefaultThreshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return Request{}, invalid("threshold must be between 0 and 1")
	}

	return Request{
		userID:    p.UserID,
		text:      text,
		field:     f,
		topK:      topK,
		threshold: threshold,
		dates:     p.Dates,
		page:      page,
		pageSize:  pageSize,
		rerank:    p.Rerank,
	}, nil
}

func positive(name string, v, def, maxV int) (int, error) {
	switch {
	case v < 0:
		return 0, invalid("%s must be positive", name)
	case v == 0:
		return def, nil
	case maxV > 0 && v > maxV:
		return maxV, nil
	}
	return v, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// UserID returns the admitted caller.
func (r *Request) UserID() string { return r.userID }

// Text returns the query text.
func (r *Request) Text() string { return r.text }

// Field returns the candidate match field.
func (r *Request) Field() field.Field { return r.field }

// TopK returns the ranked set size before pagination.
func (r *Request) TopK() int { return r.topK }

// Threshold returns the minimum cosine similarity.
func (r *Request) Threshold() float64 { return r.threshold }

// Dates returns the created_at window.
func (r *Request) Dates() daterange.Range { return r.dates }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PageSize returns the page slice length.
func (r *Request) PageSize() int { return r.pageSize }

// Rerank reports whether the re-rank strategy is applied.
func (r *Request) Rerank() bool { return r.rerank }

// Filter returns the candidate filter for the document store.
func (r *Request) Filter() filter.Filter {
	return filter.New(r.field, r.text, r.dates)
}
