package document

import (
	"strconv"
	"time"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/repository/codec"
)

const (
	fieldTitle     = "title"
	fieldContent   = "content"
	fieldCreatedAt = "created_at"
	fieldVector    = "__vector"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
// created_at is stored as unix milliseconds.
func buildHashFields(doc *domdoc.Document) map[string]string {
	return map[string]string{
		fieldTitle:     doc.Title(),
		fieldContent:   doc.Content(),
		fieldCreatedAt: strconv.FormatInt(doc.CreatedAt().UnixMilli(), 10),
		fieldVector:    string(codec.VectorToBytes(doc.Embedding())),
	}
}

// parseHashFields converts a flat hash map back into a domain Document.
// A malformed vector yields a document without embedding (not searchable).
func parseHashFields(id string, m map[string]string) domdoc.Document {
	var createdAt time.Time
	if ms, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil {
		createdAt = time.UnixMilli(ms)
	}
	vec, err := codec.BytesToVector([]byte(m[fieldVector]))
	if err != nil {
		vec = nil
	}
	return domdoc.Reconstruct(id, m[fieldTitle], m[fieldContent], vec, createdAt)
}
