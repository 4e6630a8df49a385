package document

import (
	"context"
	"slices"
	"strings"
	"sync"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
)

// MemoryRepo keeps documents in process memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]domdoc.Document
}

// NewMemory creates an empty in-memory document repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]domdoc.Document)}
}

// Insert stores a document, replacing any document with the same ID.
func (r *MemoryRepo) Insert(_ context.Context, doc *domdoc.Document) error {
	emb := slices.Clone(doc.Embedding())
	r.mu.Lock()
	r.docs[doc.ID()] = doc.WithEmbedding(emb)
	r.mu.Unlock()
	return nil
}

// Scan returns all searchable documents matching f, oldest first.
func (r *MemoryRepo) Scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	r.mu.RLock()
	out := make([]domdoc.Document, 0, len(r.docs))
	for _, d := range r.docs {
		if d.Searchable() && f.Matches(d.Title(), d.Content(), d.CreatedAt()) {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()

	sortByCreated(out)
	return out, nil
}

// Len returns the number of stored documents.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Ping always succeeds.
func (r *MemoryRepo) Ping(_ context.Context) error { return nil }

// sortByCreated gives scans a deterministic order: created_at, then ID.
func sortByCreated(docs []domdoc.Document) {
	slices.SortFunc(docs, func(a, b domdoc.Document) int {
		if c := a.CreatedAt().Compare(b.CreatedAt()); c != 0 {
			return c
		}
		return strings.Compare(a.ID(), b.ID())
	})
}
