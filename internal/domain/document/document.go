package document

import (
	"fmt"
	"regexp"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Size limits for document fields, in bytes.
const (
	MaxTitleSize   = 1024
	MaxContentSize = 163840 // 160KB
)

// Document is the searchable corpus entry (immutable value object).
type Document struct {
	id        string
	title     string
	content   string
	embedding []float32
	createdAt time.Time
}

// New validates and creates a Document without an embedding.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Title and content: non-empty, size-bounded.
func New(id, title, content string, createdAt time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if title == "" {
		return Document{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleSize {
		return Document{}, fmt.Errorf("title too large (max %d bytes)", MaxTitleSize)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if createdAt.IsZero() {
		return Document{}, fmt.Errorf("created_at is required")
	}

	return Document{id: id, title: title, content: content, createdAt: createdAt.UTC()}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, title, content string, embedding []float32, createdAt time.Time) Document {
	return Document{id: id, title: title, content: content, embedding: embedding, createdAt: createdAt.UTC()}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Embedding returns the stored embedding vector.
func (d *Document) Embedding() []float32 { return d.embedding }

// CreatedAt returns the insertion timestamp (UTC).
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// Searchable reports whether the document carries an embedding.
func (d *Document) Searchable() bool { return len(d.embedding) > 0 }

// WithEmbedding returns a copy with the given embedding set.
func (d *Document) WithEmbedding(v []float32) Document {
	return Document{id: d.id, title: d.title, content: d.content, embedding: v, createdAt: d.createdAt}
}
