package result

import "time"

// Result is a single ranked hit.
type Result struct {
	id        string
	title     string
	content   string
	createdAt time.Time
	score     float64
}

// New creates a search result.
func New(id, title, content string, createdAt time.Time, score float64) Result {
	return Result{id: id, title: title, content: content, createdAt: createdAt, score: score}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Title returns the document title.
func (r *Result) Title() string { return r.title }

// Content returns the document content.
func (r *Result) Content() string { return r.content }

// CreatedAt returns the document insertion time.
func (r *Result) CreatedAt() time.Time { return r.createdAt }

// Score returns the relevance score (cosine similarity).
func (r *Result) Score() float64 { return r.score }

// Page is one slice of a ranked result set.
type Page struct {
	Items    []Result
	Page     int
	PageSize int
	Total    int
}

// Paginate slices the ranked set: start=(page-1)*pageSize, end=start+pageSize.
// A page past the end yields an empty, non-nil slice.
func Paginate(all []Result, page, pageSize int) Page {
	p := Page{Items: []Result{}, Page: page, PageSize: pageSize, Total: len(all)}
	if page < 1 || pageSize < 1 {
		return p
	}
	// Compare in page units first so huge pages cannot overflow the offset.
	if page-1 >= (len(all)+pageSize-1)/pageSize {
		return p
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(all))
	p.Items = all[start:end]
	return p
}
