package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// Limiter admits or rejects a user's search.
type Limiter interface {
	// Admit reserves one request for the user. False means the ceiling is reached.
	Admit(ctx context.Context, userID string) (bool, error)
	// Refund returns a reservation taken by Admit for a request that did not complete.
	Refund(ctx context.Context, userID string) error
}

// ResultCache stores fully ranked, pre-pagination result sets by fingerprint.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) ([]result.Result, bool, error)
	Put(ctx context.Context, fingerprint string, results []result.Result, ttl time.Duration) error
}

// DocumentScanner returns candidate documents for a filter.
type DocumentScanner interface {
	Scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
