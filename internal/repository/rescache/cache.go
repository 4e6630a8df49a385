package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache keeps fully ranked result sets as JSON under <prefix>results:<fingerprint>.
type Cache struct {
	store  store
	prefix string
}

// New creates a result cache over a KV store.
func New(s store, keyPrefix string) *Cache {
	return &Cache{store: s, prefix: keyPrefix + "results:"}
}

type entryDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"relevance_score"`
}

// Get returns the cached ranked set. A missing or expired key is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, fingerprint string) ([]result.Result, bool, error) {
	key := c.prefix + fingerprint
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	var dtos []entryDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}

	out := make([]result.Result, len(dtos))
	for i, d := range dtos {
		out[i] = result.New(d.ID, d.Title, d.Content, d.CreatedAt, d.Score)
	}
	return out, true, nil
}

// Put stores the ranked set with the given TTL. An empty set is cached too.
func (c *Cache) Put(ctx context.Context, fingerprint string, results []result.Result, ttl time.Duration) error {
	dtos := make([]entryDTO, len(results))
	for i := range results {
		r := &results[i]
		dtos[i] = entryDTO{ID: r.ID(), Title: r.Title(), Content: r.Content(), CreatedAt: r.CreatedAt(), Score: r.Score()}
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	key := c.prefix + fingerprint
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
