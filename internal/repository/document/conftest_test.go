package document

import (
	"context"
	"strings"
	"testing"
	"time"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hashes  map[string]map[string]string
	pingErr error
	scanErr error
	getErr  error
	hsetErr error

	scanPatterns []string
	fetchBatches int
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.hashes[key] = fields
	return nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.fetchBatches++
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.scanPatterns = append(m.scanPatterns, pattern)
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(ms, "docsearch:"), ms
}

var baseTime = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func testDocument(t *testing.T, id, title, content string, age time.Duration) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, title, content, baseTime.Add(-age))
	if err != nil {
		t.Fatalf("domdoc.New: %v", err)
	}
	return doc.WithEmbedding(testVector(8))
}

func testVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(i+1) * 0.001
	}
	return vec
}
