package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/repository/codec"
)

func newLookups() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_emb_cache_total"}, []string{"result"})
}

func TestEmbed_MissThenHit(t *testing.T) {
	p := &fakeProvider{tokensPerText: 7}
	kv := newMemKV()
	lookups := newLookups()
	e := New(p, kv, "docsearch:", "m1").WithMetrics(lookups).WithLogger(zap.NewNop())
	ctx := context.Background()

	first, err := e.Embed(ctx, "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 || first.Embedding[0] != 6 {
		t.Fatalf("unexpected miss result: %+v", first)
	}

	second, err := e.Embed(ctx, "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalTokens != 0 {
		t.Errorf("expected no tokens on hit, got %d", second.TotalTokens)
	}
	if second.Embedding[0] != 6 {
		t.Errorf("expected cached vector, got %v", second.Embedding)
	}
	if p.embedCalls != 1 {
		t.Errorf("expected 1 provider call, got %d", p.embedCalls)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %f", got)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %f", got)
	}
}

func TestEmbed_KeyScopedByModel(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	if _, err := New(&fakeProvider{}, kv, "docsearch:", "m1").Embed(ctx, "text"); err != nil {
		t.Fatal(err)
	}
	p2 := &fakeProvider{}
	if _, err := New(p2, kv, "docsearch:", "m2").Embed(ctx, "text"); err != nil {
		t.Fatal(err)
	}
	if p2.embedCalls != 1 {
		t.Error("a different model must not reuse another model's vector")
	}

	keys := kv.keys("docsearch:emb:m1:")
	if len(keys) != 1 || len(keys[0]) != len("docsearch:emb:m1:")+64 {
		t.Errorf("expected one sha256-suffixed key, got %v", keys)
	}
}

func TestEmbed_ProviderError(t *testing.T) {
	kv := newMemKV()
	e := New(&fakeProvider{err: errors.New("provider down")}, kv, "p:", "m")

	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if kv.sets != 0 {
		t.Error("nothing should be cached on failure")
	}
}

func TestEmbed_StoreFailuresAreBestEffort(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("connection reset")
	kv.setErr = errors.New("connection reset")
	e := New(&fakeProvider{}, kv, "p:", "m")

	res, err := e.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("store failure must not fail the embed: %v", err)
	}
	if res.Embedding[0] != 3 {
		t.Errorf("expected provider vector, got %v", res.Embedding)
	}
}

func TestEmbed_WrongDimensionsIsMiss(t *testing.T) {
	kv := newMemKV()
	p := &fakeProvider{}
	e := New(p, kv, "p:", "m").WithDimensions(1)
	kv.data[e.key("abc")] = codec.VectorToBytes([]float32{1, 2, 3})

	res, err := e.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	if p.embedCalls != 1 || len(res.Embedding) != 1 {
		t.Errorf("expected re-embed after dimension mismatch, calls=%d vec=%v", p.embedCalls, res.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	kv := newMemKV()
	p := &fakeProvider{}
	e := New(p, kv, "p:", "m")
	kv.data[e.key("abc")] = []byte{1, 2, 3}

	if _, err := e.Embed(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	if p.embedCalls != 1 {
		t.Errorf("expected provider call, got %d", p.embedCalls)
	}
}

func TestBatchEmbed_OnlyMissesReachProvider(t *testing.T) {
	kv := newMemKV()
	p := &fakeProvider{tokensPerText: 2}
	e := New(p, kv, "p:", "m")
	ctx := context.Background()

	if _, err := e.Embed(ctx, "cached"); err != nil {
		t.Fatal(err)
	}

	res, err := e.BatchEmbed(ctx, []string{"a", "cached", "bbb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.batches) != 1 || len(p.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 misses, got %v", p.batches)
	}
	want := []float32{1, 6, 3}
	for i, w := range want {
		if res.Embeddings[i][0] != w {
			t.Errorf("embeddings[%d] = %v, want %v", i, res.Embeddings[i], w)
		}
	}
	if res.TotalTokens != 4 {
		t.Errorf("expected tokens for misses only (4), got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_DuplicateTextsEmbeddedOnce(t *testing.T) {
	p := &fakeProvider{}
	e := New(p, newMemKV(), "p:", "m")

	res, err := e.BatchEmbed(context.Background(), []string{"dup", "x", "dup"})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.batches) != 1 || len(p.batches[0]) != 2 {
		t.Fatalf("expected duplicate text to be sent once, got %v", p.batches)
	}
	if res.Embeddings[0][0] != 3 || res.Embeddings[2][0] != 3 {
		t.Errorf("duplicate positions must share the vector, got %v", res.Embeddings)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	kv := newMemKV()
	p := &fakeProvider{}
	e := New(p, kv, "p:", "m")
	ctx := context.Background()
	_, _ = e.BatchEmbed(ctx, []string{"a", "b"})

	res, err := e.BatchEmbed(ctx, []string{"b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.batches) != 1 {
		t.Errorf("expected no second provider call, got %d batches", len(p.batches))
	}
	if res.TotalTokens != 0 || len(res.Embeddings) != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestBatchEmbed_ProviderError(t *testing.T) {
	e := New(&fakeProvider{err: errors.New("api down")}, newMemKV(), "p:", "m")
	if _, err := e.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	e := New(&fakeProvider{}, newMemKV(), "p:", "m")
	res, err := e.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Errorf("expected empty result, got %+v, %v", res, err)
	}
}

func TestHealthCheck(t *testing.T) {
	plain := New(&fakeProvider{}, newMemKV(), "p:", "m")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("provider without checker should be healthy, got %v", err)
	}

	down := errors.New("down")
	checked := New(&healthyProvider{healthErr: down}, newMemKV(), "p:", "m")
	if err := checked.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected provider error, got %v", err)
	}
}
