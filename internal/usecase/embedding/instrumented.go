package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// DefaultMaxAPIBatchSize is the largest batch sent in a single provider call.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps Embedder with throttling, a circuit breaker and logging.
// Transport metrics (requests, duration, tokens) are recorded by the provider itself.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with logging. Throttling and the
// breaker are off until configured.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// WithThrottle limits provider calls to rps per second with the given burst.
// rps <= 0 disables throttling.
func (p *InstrumentedEmbedder) WithThrottle(rps float64, burst int) *InstrumentedEmbedder {
	if rps <= 0 {
		p.limiter = nil
		return p
	}
	if burst < 1 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return p
}

// BreakerSettings configures the provider circuit breaker.
type BreakerSettings struct {
	// Failures is the number of consecutive errors that opens the circuit. 0 disables the breaker.
	Failures uint32
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval resets closed-state counts periodically. 0 never resets.
	Interval time.Duration
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
}

// WithBreaker wraps provider calls in a circuit breaker.
func (p *InstrumentedEmbedder) WithBreaker(bs BreakerSettings) *InstrumentedEmbedder {
	if bs.Failures == 0 {
		p.breaker = nil
		return p
	}
	state := metrics.EmbeddingBreakerState.WithLabelValues(p.provider)
	state.Set(float64(gobreaker.StateClosed))
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.provider,
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bs.Failures
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state.Set(float64(to))
			p.logger.Warn("Embedding circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

// Embed waits for a throttle token, delegates through the breaker and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := call(ctx, p, func() (domain.EmbeddingResult, error) {
		return p.inner.Embed(ctx, text)
	})
	duration := time.Since(start)
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, err
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed splits texts into provider-sized chunks; each chunk is one throttled call.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}

	for offset := 0; offset < len(texts); offset += DefaultMaxAPIBatchSize {
		end := min(offset+DefaultMaxAPIBatchSize, len(texts))
		chunk := texts[offset:end]

		res, err := call(ctx, p, func() (domain.BatchEmbeddingResult, error) {
			return domain.EmbedBatch(ctx, p.inner, chunk)
		})
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck bypasses throttle and breaker.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedder health: %w", err)
		}
	}
	if p.breaker != nil && p.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit open", domain.ErrEmbeddingFailure)
	}
	return nil
}

func call[T any](ctx context.Context, p *InstrumentedEmbedder, fn func() (T, error)) (T, error) {
	var zero T
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.countError("throttled")
			return zero, fmt.Errorf("throttle wait: %w", err)
		}
	}
	if p.breaker == nil {
		res, err := fn()
		if err != nil {
			return zero, fmt.Errorf("embed: %w", err)
		}
		return res, nil
	}

	v, err := p.breaker.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.countError("circuit_open")
		return zero, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingFailure, p.provider, err)
	}
	if err != nil {
		return zero, fmt.Errorf("embed: %w", err)
	}
	return v.(T), nil //nolint:forcetypeassert // fn returns T
}

func (p *InstrumentedEmbedder) countError(kind string) {
	metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, kind).Inc()
}
