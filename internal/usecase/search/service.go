package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Pipeline defaults.
const (
	DefaultCacheTTL     = time.Hour
	DefaultEmbedTimeout = 10 * time.Second
	DefaultScanTimeout  = 5 * time.Second
	DefaultScanRetries  = 3
)

// Response is one page of a ranked search.
type Response struct {
	Page          result.Page
	Cached        bool
	InferenceTime time.Duration
}

// Service orchestrates admission, result caching, embedding, candidate scan and ranking.
type Service struct {
	limiter Limiter
	cache   ResultCache
	docs    DocumentScanner
	embed   Embedder

	reranker     Reranker
	cacheTTL     time.Duration
	embedTimeout time.Duration
	scanTimeout  time.Duration
	scanRetries  uint

	flight singleflight.Group
	tracer trace.Tracer
}

// New creates a search service with default timeouts and the ByScore reranker.
func New(limiter Limiter, cache ResultCache, docs DocumentScanner, embed Embedder) *Service {
	return &Service{
		limiter:      limiter,
		cache:        cache,
		docs:         docs,
		embed:        embed,
		reranker:     ByScore,
		cacheTTL:     DefaultCacheTTL,
		embedTimeout: DefaultEmbedTimeout,
		scanTimeout:  DefaultScanTimeout,
		scanRetries:  DefaultScanRetries,
		tracer:       otel.Tracer("github.com/kailas-cloud/docsearch/internal/usecase/search"),
	}
}

// WithReranker sets the re-rank strategy applied when a request asks for it.
func (s *Service) WithReranker(r Reranker) *Service {
	if r != nil {
		s.reranker = r
	}
	return s
}

// WithCacheTTL sets the result cache entry lifetime.
func (s *Service) WithCacheTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithTimeouts sets the embedding and scan deadlines.
func (s *Service) WithTimeouts(embed, scan time.Duration) *Service {
	if embed > 0 {
		s.embedTimeout = embed
	}
	if scan > 0 {
		s.scanTimeout = scan
	}
	return s
}

// WithScanRetries sets the number of scan attempts (minimum 1).
func (s *Service) WithScanRetries(n uint) *Service {
	s.scanRetries = max(n, 1)
	return s
}

// Search admits the caller, then serves the request from the result cache or
// computes and caches the ranked set, and returns the requested page.
// A rejected request leaves the counter untouched; a failed admitted request is refunded.
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("search.field", string(req.Field())),
		attribute.Int("search.top_k", req.TopK()),
		attribute.Bool("search.rerank", req.Rerank()),
	))
	defer span.End()

	admitted, err := s.limiter.Admit(ctx, req.UserID())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Response{}, s.fail(span, fmt.Errorf("%w: admit: %w", domain.ErrStoreUnavailable, err))
	}
	if !admitted {
		metrics.SearchRequestsTotal.WithLabelValues("rate_limited").Inc()
		span.SetAttributes(attribute.Bool("search.rate_limited", true))
		return Response{}, domain.ErrRateLimited
	}

	ranked, cached, err := s.ranked(ctx, req)
	if err != nil {
		s.refund(ctx, req.UserID())
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Response{}, s.fail(span, err)
	}

	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Bool("search.cached", cached), attribute.Int("search.results", len(ranked)))

	return Response{
		Page:          result.Paginate(ranked, req.Page(), req.PageSize()),
		Cached:        cached,
		InferenceTime: elapsed,
	}, nil
}

// ranked returns the full ranked set and whether it came from the cache.
func (s *Service) ranked(ctx context.Context, req *request.Request) ([]result.Result, bool, error) {
	log := logger.FromContext(ctx)
	fp := Fingerprint(req)

	hit, found, err := s.cache.Get(ctx, fp)
	switch {
	case err != nil:
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
		log.Warn("result cache read failed, computing", zap.String("fingerprint", fp), zap.Error(err))
	case found:
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
		return hit, true, nil
	default:
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	}

	// Followers share the leader's computation; it runs detached from any single caller.
	ch := s.flight.DoChan(fp, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), req, fp)
	})
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, false, fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err())
		}
		return nil, false, ctx.Err() //nolint:wrapcheck // caller cancellation
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		if res.Shared {
			log.Debug("joined in-flight search", zap.String("fingerprint", fp))
		}
		return res.Val.([]result.Result), false, nil
	}
}

// compute runs embed and scan concurrently, ranks, and writes the cache once.
func (s *Service) compute(ctx context.Context, req *request.Request, fp string) ([]result.Result, error) {
	var (
		query []float32
		docs  []domdoc.Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.embedQuery(gctx, req.Text())
		query = v
		return err
	})
	g.Go(func() error {
		d, err := s.scan(gctx, req.Filter())
		docs = d
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped with a domain sentinel
	}

	_, span := s.tracer.Start(ctx, "search.rank", trace.WithAttributes(attribute.Int("search.candidates", len(docs))))
	ranked := Rank(query, docs, req.Threshold(), req.TopK())
	if req.Rerank() {
		ranked = s.reranker(ranked)
	}
	span.End()

	metrics.SearchCandidates.Observe(float64(len(docs)))
	metrics.SearchResults.Observe(float64(len(ranked)))

	if err := s.cache.Put(ctx, fp, ranked, s.cacheTTL); err != nil {
		logger.FromContext(ctx).Warn("result cache write failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	return ranked, nil
}

func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "search.embed")
	defer span.End()

	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	res, err := s.embed.Embed(ectx, text)
	if err != nil {
		if errors.Is(ectx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w: embedding exceeded %s", domain.ErrTimeout, domain.ErrEmbeddingFailure, s.embedTimeout)
		}
		if errors.Is(err, domain.ErrEmbeddingFailure) {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return nil, fmt.Errorf("%w: vectorize query: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrEmbeddingFailure)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

func (s *Service) scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error) {
	ctx, span := s.tracer.Start(ctx, "search.scan")
	defer span.End()

	sctx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	attempt := 0
	docs, err := backoff.Retry(sctx, func() ([]domdoc.Document, error) {
		attempt++
		d, err := s.docs.Scan(sctx, f)
		if err != nil && errors.Is(err, domain.ErrInvalidRequest) {
			return nil, backoff.Permanent(err)
		}
		return d, err
	},
		backoff.WithBackOff(scanBackOff()),
		backoff.WithMaxTries(s.scanRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.FromContext(ctx).Warn("document scan failed, retrying",
				zap.Int("attempt", attempt), zap.Duration("backoff", next), zap.Error(err))
		}),
	)
	if err != nil {
		if errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w: scan exceeded %s", domain.ErrTimeout, domain.ErrStoreUnavailable, s.scanTimeout)
		}
		if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, fmt.Errorf("scan documents: %w", err)
		}
		return nil, fmt.Errorf("%w: scan documents: %w", domain.ErrStoreUnavailable, err)
	}
	span.SetAttributes(attribute.Int("search.candidates", len(docs)), attribute.Int("search.scan_attempts", attempt))
	return docs, nil
}

func scanBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}

func (s *Service) refund(ctx context.Context, userID string) {
	if err := s.limiter.Refund(context.WithoutCancel(ctx), userID); err != nil {
		logger.FromContext(ctx).Error("rate limit refund failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
