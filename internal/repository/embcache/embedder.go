// Package embcache memoizes embedding vectors in a key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/repository/codec"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Embedder serves vectors from the store and only calls the provider for texts it has never seen.
// Vectors are stored without expiry under <prefix>emb:<model>:<sha256(text)>.
type Embedder struct {
	inner  domain.Embedder
	store  store
	prefix string
	dims   int

	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner. model scopes the keyspace so switching models never serves old vectors.
func New(inner domain.Embedder, s store, keyPrefix, model string) *Embedder {
	return &Embedder{
		inner:  inner,
		store:  s,
		prefix: keyPrefix + "emb:" + model + ":",
		logger: zap.NewNop(),
	}
}

// WithDimensions makes cached vectors of any other length count as misses.
func (e *Embedder) WithDimensions(n int) *Embedder {
	e.dims = n
	return e
}

// WithMetrics counts lookups by result label ("hit", "miss").
func (e *Embedder) WithMetrics(lookups *prometheus.CounterVec) *Embedder {
	e.lookups = lookups
	return e
}

// WithLogger sets the logger for store failures. Store failures never fail an embed.
func (e *Embedder) WithLogger(l *zap.Logger) *Embedder {
	if l != nil {
		e.logger = l
	}
	return e
}

// Embed returns the stored vector, or embeds and stores it. A hit reports zero tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := e.key(text)
	if vec, ok := e.load(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	e.save(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed embeds each distinct missing text once, in a single inner batch call.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}

	// pending maps a missing text to every position that needs it.
	pending := make(map[string][]int)
	var misses []string
	for i, text := range texts {
		if idx, ok := pending[text]; ok {
			pending[text] = append(idx, i)
			continue
		}
		if vec, ok := e.load(ctx, e.key(text)); ok {
			out.Embeddings[i] = vec
			continue
		}
		pending[text] = []int{i}
		misses = append(misses, text)
	}
	if len(misses) == 0 {
		return out, nil
	}

	res, err := domain.EmbedBatch(ctx, e.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	for j, text := range misses {
		vec := res.Embeddings[j]
		for _, i := range pending[text] {
			out.Embeddings[i] = vec
		}
		e.save(ctx, e.key(text), vec)
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	return out, nil
}

// HealthCheck reports the provider's health; the cache itself is best effort.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.prefix + hex.EncodeToString(sum[:])
}

func (e *Embedder) load(ctx context.Context, key string) ([]float32, bool) {
	vec, err := e.read(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			e.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		e.count("miss")
		return nil, false
	}
	e.count("hit")
	return vec, true
}

func (e *Embedder) read(ctx context.Context, key string) ([]float32, error) {
	data, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by caller
	}
	vec, err := codec.BytesToVector(data)
	if err != nil {
		return nil, err //nolint:wrapcheck // logged by caller
	}
	switch {
	case len(vec) == 0:
		return nil, db.ErrKeyNotFound
	case e.dims > 0 && len(vec) != e.dims:
		return nil, fmt.Errorf("cached vector has %d dimensions, want %d", len(vec), e.dims)
	}
	return vec, nil
}

func (e *Embedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.store.Set(ctx, key, codec.VectorToBytes(vec)); err != nil {
		e.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string) {
	if e.lookups != nil {
		e.lookups.WithLabelValues(result).Inc()
	}
}
