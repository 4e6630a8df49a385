package embcache

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
)

// fakeProvider returns a one-element vector holding len(text), so results are traceable to input.
type fakeProvider struct {
	tokensPerText int
	err           error

	embedCalls int
	batches    [][]string
}

func (p *fakeProvider) vec(text string) []float32 { return []float32{float32(len(text))} }

func (p *fakeProvider) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	p.embedCalls++
	if p.err != nil {
		return domain.EmbeddingResult{}, p.err
	}
	return domain.EmbeddingResult{
		Embedding:    p.vec(text),
		PromptTokens: p.tokensPerText,
		TotalTokens:  p.tokensPerText,
	}, nil
}

func (p *fakeProvider) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	p.batches = append(p.batches, append([]string(nil), texts...))
	if p.err != nil {
		return domain.BatchEmbeddingResult{}, p.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		out.Embeddings[i] = p.vec(t)
	}
	out.PromptTokens = p.tokensPerText * len(texts)
	out.TotalTokens = out.PromptTokens
	return out, nil
}

// healthyProvider adds a health check to fakeProvider.
type healthyProvider struct {
	fakeProvider
	healthErr error
}

func (p *healthyProvider) HealthCheck(context.Context) error { return p.healthErr }

// memKV is a map-backed store; getErr/setErr force failures.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memKV) keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
