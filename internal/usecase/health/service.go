package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentKV        = "kv"
	ComponentDocuments = "documents"
	ComponentEmbedding = "embedding"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Ready reports whether every component passed.
func (r Report) Ready() bool { return r.Status == Healthy }

// Service coordinates health checks.
type Service struct {
	kv        Pinger
	docs      Pinger
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. Nil components are skipped.
func New(kv, docs Pinger, embedding EmbeddingChecker) *Service {
	return &Service{kv: kv, docs: docs, embedding: embedding, timeout: DefaultCheckTimeout}
}

// WithTimeout overrides the per-component timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	if s.kv != nil {
		checks[ComponentKV] = s.run(ctx, s.kv.Ping)
	}
	if s.docs != nil {
		checks[ComponentDocuments] = s.run(ctx, s.docs.Ping)
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.run(ctx, s.embedding.HealthCheck)
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, fn func(context.Context) error) CheckResult {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(cctx); err != nil {
		return CheckError
	}
	return CheckOK
}
