package document

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain/search/daterange"
	"github.com/kailas-cloud/docsearch/internal/domain/search/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
)

func TestInsert_WritesHash(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t, "doc-1", "Go 1.23", "iterators", 0)

	if err := repo.Insert(context.Background(), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, ok := ms.hashes["docsearch:doc:doc-1"]
	if !ok {
		t.Fatalf("expected hash at docsearch:doc:doc-1, got keys %v", ms.hashes)
	}
	if h["title"] != "Go 1.23" || h["content"] != "iterators" {
		t.Errorf("unexpected fields: %v", h)
	}
	if h["created_at"] != fmt.Sprint(baseTime.UnixMilli()) {
		t.Errorf("expected created_at in unix ms, got %q", h["created_at"])
	}
	if len(h["__vector"]) != 8*4 {
		t.Errorf("expected 32-byte vector, got %d", len(h["__vector"]))
	}
}

func TestInsert_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetErr = errors.New("READONLY")
	doc := testDocument(t, "doc-1", "t", "c", 0)

	if err := repo.Insert(context.Background(), &doc); err == nil {
		t.Fatal("expected error")
	}
}

func TestScan_RoundTripAndOrder(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for _, d := range []struct {
		id  string
		age time.Duration
	}{{"newest", 0}, {"oldest", 48 * time.Hour}, {"middle", 24 * time.Hour}} {
		doc := testDocument(t, d.id, "Go news", "content", d.age)
		if err := repo.Insert(ctx, &doc); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	docs, err := repo.Scan(ctx, filter.New(field.Title, "", daterange.Range{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"oldest", "middle", "newest"}
	if len(docs) != len(want) {
		t.Fatalf("expected %d docs, got %d", len(want), len(docs))
	}
	for i, id := range want {
		if docs[i].ID() != id {
			t.Errorf("position %d: expected %s, got %s", i, id, docs[i].ID())
		}
	}
	if len(docs[0].Embedding()) != 8 || docs[0].Embedding()[0] != 0.001 {
		t.Errorf("unexpected embedding %v", docs[0].Embedding())
	}
	if !docs[2].CreatedAt().Equal(baseTime) {
		t.Errorf("expected created_at %s, got %s", baseTime, docs[2].CreatedAt())
	}
}

func TestScan_AppliesFilter(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	a := testDocument(t, "a", "Postgres tuning", "vacuum", 0)
	b := testDocument(t, "b", "Go generics", "type params", 0)
	_ = repo.Insert(ctx, &a)
	_ = repo.Insert(ctx, &b)

	docs, err := repo.Scan(ctx, filter.New(field.Title, "go", daterange.Range{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "b" {
		t.Errorf("expected [b], got %d docs", len(docs))
	}
}

func TestScan_SkipsUnsearchableAndVanished(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hashes["docsearch:doc:novec"] = map[string]string{"title": "t", "content": "c", "created_at": "0"}
	ms.hashes["docsearch:doc:gone"] = map[string]string{}

	docs, err := repo.Scan(context.Background(), filter.New(field.Title, "", daterange.Range{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no docs, got %d", len(docs))
	}
}

func TestScan_BatchesFetches(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	for i := range fetchBatch + 1 {
		doc := testDocument(t, fmt.Sprintf("d%d", i), "t", "c", 0)
		_ = repo.Insert(ctx, &doc)
	}

	docs, err := repo.Scan(ctx, filter.New(field.Title, "", daterange.Range{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != fetchBatch+1 {
		t.Errorf("expected %d docs, got %d", fetchBatch+1, len(docs))
	}
	if ms.fetchBatches != 2 {
		t.Errorf("expected 2 fetch batches, got %d", ms.fetchBatches)
	}
	if ms.scanPatterns[0] != "docsearch:doc:*" {
		t.Errorf("unexpected scan pattern %q", ms.scanPatterns[0])
	}
}

func TestScan_Errors(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.scanErr = errors.New("timeout")
	if _, err := repo.Scan(context.Background(), filter.Filter{}); err == nil {
		t.Error("expected scan error")
	}

	repo, ms = newTestRepo(t)
	ms.hashes["docsearch:doc:x"] = map[string]string{"title": "t"}
	ms.getErr = errors.New("timeout")
	if _, err := repo.Scan(context.Background(), filter.Filter{}); err == nil {
		t.Error("expected fetch error")
	}
}

func TestPing(t *testing.T) {
	repo, ms := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ms.pingErr = errors.New("down")
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
