package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// MaxBatchSize is the maximum number of drafts per Ingest call.
const MaxBatchSize = 100

// Draft is an unvalidated document. Empty ID gets a random UUID; zero CreatedAt gets now.
type Draft struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
}

// Service validates, embeds and stores documents.
type Service struct {
	repo         Repository
	embed        Embedder
	maxBatchSize int
	source       string
	now          func() time.Time
}

// New creates an ingest service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed, maxBatchSize: MaxBatchSize, source: "api", now: time.Now}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithSource sets the source label reported in ingestion metrics ("api", "crawler").
func (s *Service) WithSource(source string) *Service {
	s.source = source
	return s
}

// WithClock overrides the time source (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest validates all drafts, embeds their content in one batch and inserts them.
// Validation is all-or-nothing; nothing is embedded when any draft is invalid.
func (s *Service) Ingest(ctx context.Context, drafts []Draft) ([]domdoc.Document, error) {
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no documents: %w", domain.ErrInvalidRequest)
	}
	if len(drafts) > s.maxBatchSize {
		return nil, fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRequest)
	}

	docs := make([]domdoc.Document, len(drafts))
	texts := make([]string, len(drafts))
	for i, d := range drafts {
		doc, err := s.validate(d)
		if err != nil {
			return nil, fmt.Errorf("document [%d]: %w: %w", i, domain.ErrInvalidRequest, err)
		}
		docs[i] = doc
		texts[i] = doc.Content()
	}

	res, err := domain.EmbedBatch(ctx, s.embed, texts)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingFailure) {
			return nil, fmt.Errorf("vectorize documents: %w", err)
		}
		return nil, fmt.Errorf("%w: vectorize documents: %w", domain.ErrEmbeddingFailure, err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	for i := range docs {
		if len(res.Embeddings[i]) == 0 {
			return nil, fmt.Errorf("%w: empty vector for document %s", domain.ErrEmbeddingFailure, docs[i].ID())
		}
		docs[i] = docs[i].WithEmbedding(res.Embeddings[i])
		if err := s.repo.Insert(ctx, &docs[i]); err != nil {
			return nil, fmt.Errorf("%w: insert document %s: %w", domain.ErrStoreUnavailable, docs[i].ID(), err)
		}
	}
	metrics.DocumentsIngestedTotal.WithLabelValues(s.source).Add(float64(len(docs)))
	return docs, nil
}

func (s *Service) validate(d Draft) (domdoc.Document, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	at := d.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	return domdoc.New(id, d.Title, d.Content, at) //nolint:wrapcheck // wrapped by caller
}
