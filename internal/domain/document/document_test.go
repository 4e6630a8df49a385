package document

import (
	"strings"
	"testing"
	"time"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Valid(t *testing.T) {
	doc, err := New("doc-1", "Go 1.22 released", "range over int", created)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "doc-1" {
		t.Errorf("ID() = %q", doc.ID())
	}
	if doc.Title() != "Go 1.22 released" {
		t.Errorf("Title() = %q", doc.Title())
	}
	if doc.Content() != "range over int" {
		t.Errorf("Content() = %q", doc.Content())
	}
	if !doc.CreatedAt().Equal(created) {
		t.Errorf("CreatedAt() = %s", doc.CreatedAt())
	}
	if doc.Searchable() {
		t.Error("new document without embedding must not be searchable")
	}
}

func TestNew_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	doc, err := New("d", "t", "c", time.Date(2024, 3, 1, 15, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.CreatedAt().Location() != time.UTC || doc.CreatedAt().Hour() != 12 {
		t.Errorf("expected 12:00 UTC, got %s", doc.CreatedAt())
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		title   string
		content string
		at      time.Time
		wantErr string
	}{
		{"empty id", "", "t", "c", created, "ID is required"},
		{"long id", strings.Repeat("a", 257), "t", "c", created, "too long"},
		{"bad id chars", "a/b", "t", "c", created, "alphanumeric"},
		{"empty title", "d", "", "c", created, "title is required"},
		{"large title", "d", strings.Repeat("t", MaxTitleSize+1), "c", created, "title too large"},
		{"empty content", "d", "t", "", created, "content is required"},
		{"large content", "d", "t", strings.Repeat("c", MaxContentSize+1), created, "content too large"},
		{"zero time", "d", "t", "c", time.Time{}, "created_at"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.id, tc.title, tc.content, tc.at)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestNew_ContentAtMaxSize(t *testing.T) {
	if _, err := New("d", "t", strings.Repeat("c", MaxContentSize), created); err != nil {
		t.Fatalf("unexpected error at max size: %v", err)
	}
}

func TestWithEmbedding(t *testing.T) {
	doc, _ := New("d", "t", "c", created)
	withVec := doc.WithEmbedding([]float32{0.1, 0.2})

	if !withVec.Searchable() {
		t.Error("expected searchable after WithEmbedding")
	}
	if doc.Searchable() {
		t.Error("original must stay unchanged")
	}
	if withVec.ID() != "d" || withVec.Title() != "t" || !withVec.CreatedAt().Equal(created) {
		t.Error("WithEmbedding must keep other fields")
	}
}

func TestReconstruct(t *testing.T) {
	doc := Reconstruct("d", "t", "c", []float32{1}, created)
	if len(doc.Embedding()) != 1 || doc.Title() != "t" {
		t.Errorf("unexpected reconstructed document: %+v", doc)
	}
}
