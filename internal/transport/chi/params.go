package chi

import (
	"fmt"
	"net/url"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/search/daterange"
	"github.com/kailas-cloud/docsearch/internal/domain/search/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
)

// SearchParams holds the raw GET /search query parameters. Nil means absent.
type SearchParams struct {
	Text      *string
	SearchBy  *string
	TopK      *int
	Threshold *float64
	StartDate *string
	EndDate   *string
	Page      *int
	PageSize  *int
	ReRank    *bool
}

// bindSearchParams decodes query parameters with form/explode semantics.
// Type errors wrap domain.ErrInvalidRequest.
func bindSearchParams(q url.Values) (SearchParams, error) {
	var p SearchParams
	bindings := []struct {
		name string
		dest any
	}{
		{"text", &p.Text},
		{"search_by", &p.SearchBy},
		{"top_k", &p.TopK},
		{"threshold", &p.Threshold},
		{"start_date", &p.StartDate},
		{"end_date", &p.EndDate},
		{"page", &p.Page},
		{"page_size", &p.PageSize},
		{"re_rank", &p.ReRank},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return SearchParams{}, fmt.Errorf("%w: parameter %s: %w", domain.ErrInvalidRequest, b.name, err)
		}
	}
	return p, nil
}

// toRequest validates bound parameters into a search request for userID.
func (p SearchParams) toRequest(userID string) (request.Request, error) {
	dates, err := daterange.Parse(deref(p.StartDate), deref(p.EndDate))
	if err != nil {
		return request.Request{}, fmt.Errorf("date range: %w", err)
	}

	req, err := request.New(request.Params{
		UserID:    userID,
		Text:      deref(p.Text),
		Field:     field.Field(deref(p.SearchBy)),
		TopK:      deref(p.TopK),
		Threshold: p.Threshold,
		Dates:     dates,
		Page:      deref(p.Page),
		PageSize:  deref(p.PageSize),
		Rerank:    deref(p.ReRank),
	})
	if err != nil {
		return request.Request{}, fmt.Errorf("search request: %w", err)
	}
	return req, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
