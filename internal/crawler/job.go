package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	ingestuc "github.com/kailas-cloud/docsearch/internal/usecase/ingest"
)

// Ingester stores drafts as searchable documents.
type Ingester interface {
	Ingest(ctx context.Context, drafts []ingestuc.Draft) ([]domdoc.Document, error)
}

// Job crawls once and ingests the collected articles.
type Job struct {
	crawler *Crawler
	ingest  Ingester
	logger  *zap.Logger
	now     func() time.Time
}

// NewJob creates an ingestion job.
func NewJob(c *Crawler, ingest Ingester, logger *zap.Logger) *Job {
	return &Job{crawler: c, ingest: ingest, logger: logger, now: time.Now}
}

// Run collects articles and ingests them. Document IDs derive from the article URL,
// so repeated runs overwrite rather than duplicate. Returns the number ingested.
func (j *Job) Run(ctx context.Context) (int, error) {
	start := j.now()

	articles, err := j.crawler.Collect(ctx)
	if err != nil {
		return 0, fmt.Errorf("collect articles: %w", err)
	}
	if len(articles) == 0 {
		j.logger.Warn("crawler found no articles")
		return 0, nil
	}

	drafts := make([]ingestuc.Draft, len(articles))
	for i, a := range articles {
		drafts[i] = ingestuc.Draft{
			ID:        ArticleID(a.URL),
			Title:     truncate(a.Title, domdoc.MaxTitleSize),
			Content:   a.Content,
			CreatedAt: start,
		}
	}

	docs, err := j.ingest.Ingest(ctx, drafts)
	if err != nil {
		return 0, fmt.Errorf("ingest articles: %w", err)
	}

	j.logger.Info("crawler run completed",
		zap.Int("articles", len(docs)),
		zap.Duration("duration", time.Since(start)),
	)
	return len(docs), nil
}

// ArticleID is the UUID v5 of the article URL.
func ArticleID(articleURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(articleURL)).String()
}
