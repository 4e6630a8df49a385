package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docsearch/internal/db"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
)

// fetchBatch bounds the number of keys per pipelined HGETALL round.
const fetchBatch = 500

// store is the consumer interface for documents (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores documents as Redis hashes under <prefix>doc:<id>.
type Repo struct {
	store  store
	prefix string
}

// New creates a document repository. keyPrefix is the global storage prefix.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "doc:"}
}

// Insert writes a document, replacing any document with the same ID.
func (r *Repo) Insert(ctx context.Context, doc *domdoc.Document) error {
	key := r.prefix + doc.ID()
	if err := r.store.HSet(ctx, key, buildHashFields(doc)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Scan returns all searchable documents matching f, oldest first.
// Matching is evaluated in-process after a keyspace scan.
func (r *Repo) Scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}

	var out []domdoc.Document
	for start := 0; start < len(keys); start += fetchBatch {
		end := min(start+fetchBatch, len(keys))
		batch := keys[start:end]

		maps, err := r.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch documents: %w", err)
		}
		for i, m := range maps {
			if len(m) == 0 {
				continue // deleted between SCAN and HGETALL
			}
			doc := parseHashFields(strings.TrimPrefix(batch[i], r.prefix), m)
			if !doc.Searchable() || !f.Matches(doc.Title(), doc.Content(), doc.CreatedAt()) {
				continue
			}
			out = append(out, doc)
		}
	}

	sortByCreated(out)
	return out, nil
}

// Ping checks connectivity of the underlying store.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping documents: %w", err)
	}
	return nil
}

var _ store = db.Store(nil)
