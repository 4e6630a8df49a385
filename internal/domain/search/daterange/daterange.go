package daterange

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// Layout is the accepted calendar date format.
const Layout = "2006-01-02"

// Range is an inclusive created_at window. A nil bound is open.
type Range struct {
	start *time.Time
	end   *time.Time
}

// Parse builds a Range from optional YYYY-MM-DD strings.
// The end bound covers the whole end day.
func Parse(start, end string) (Range, error) {
	var r Range
	if start != "" {
		t, err := time.Parse(Layout, start)
		if err != nil {
			return Range{}, fmt.Errorf("%w: start_date %q", domain.ErrInvalidDateFormat, start)
		}
		r.start = &t
	}
	if end != "" {
		t, err := time.Parse(Layout, end)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end_date %q", domain.ErrInvalidDateFormat, end)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		r.end = &t
	}
	if r.start != nil && r.end != nil && r.start.After(*r.end) {
		return Range{}, fmt.Errorf("%w: start_date is after end_date", domain.ErrInvalidRequest)
	}
	return r, nil
}

// New builds a Range from explicit bounds (either may be nil).
func New(start, end *time.Time) (Range, error) {
	if start != nil && end != nil && start.After(*end) {
		return Range{}, fmt.Errorf("%w: start is after end", domain.ErrInvalidRequest)
	}
	return Range{start: start, end: end}, nil
}

// Start returns the lower bound or nil.
func (r Range) Start() *time.Time { return r.start }

// End returns the upper bound or nil.
func (r Range) End() *time.Time { return r.end }

// IsZero reports whether both bounds are open.
func (r Range) IsZero() bool { return r.start == nil && r.end == nil }

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	if r.start != nil && t.Before(*r.start) {
		return false
	}
	if r.end != nil && t.After(*r.end) {
		return false
	}
	return true
}

// Key is the canonical encoding used in cache fingerprints.
func (r Range) Key() string {
	return bound(r.start) + ".." + bound(r.end)
}

func bound(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
