package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/logger"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docsearch/internal/usecase/search"
)

// maxBodyBytes bounds POST /documents payloads.
const maxBodyBytes = 8 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes search, ingestion and health over HTTP.
type Server struct {
	search        *searchuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. ingest may be nil to disable POST /documents.
func NewServer(
	search *searchuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		ingest: ingest,
		health: health,
		logger: logger,
	}
	// Order matters: timeouts also wrap ErrEmbeddingFailure.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMissingUserID, http.StatusBadRequest, CodeMissingUserID),
		sentinelHandler(domain.ErrInvalidDateFormat, http.StatusBadRequest, CodeInvalidDateFormat),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusInternalServerError, CodeEmbeddingFailure),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusInternalServerError, CodeStoreUnavailable),
	}
	return s
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/health/ready", s.Ready)
	r.Get("/metrics", s.Metrics)
	r.With(RequireUserID()).Get("/search", s.SearchDocuments)
	if s.ingest != nil {
		r.Post("/documents", s.IngestDocuments)
	}
}

// SearchDocuments handles GET /search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, err := params.toRequest(UserIDFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Page.Items))
	for i := range resp.Page.Items {
		items[i] = searchResultToDTO(&resp.Page.Items[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Results:       items,
		Page:          resp.Page.Page,
		PageSize:      resp.Page.PageSize,
		TotalResults:  resp.Page.Total,
		InferenceTime: resp.InferenceTime.Seconds(),
		Cached:        resp.Cached,
	})
}

// IngestDocuments handles POST /documents.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	drafts := make([]ingestuc.Draft, len(req.Documents))
	for i, d := range req.Documents {
		drafts[i] = ingestuc.Draft{ID: d.ID, Title: d.Title, Content: d.Content}
		if d.CreatedAt != nil {
			drafts[i].CreatedAt = *d.CreatedAt
		}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	docs, err := s.ingest.Ingest(ctx, drafts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = documentToDTO(&docs[i])
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, IngestResponse{Documents: out, Count: len(out)})
}

// HealthCheck handles GET /health (liveness).
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// Ready handles GET /health/ready.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if !report.Ready() {
		httpStatus = http.StatusServiceUnavailable
		s.logger.Warn("readiness check failed", zap.Any("checks", checks))
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(usage.TotalTokens(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors keep their detail; everything else collapses to the sentinel text.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrMissingUserID,
		domain.ErrInvalidDateFormat,
		domain.ErrRateLimited,
		domain.ErrTimeout,
		domain.ErrEmbeddingFailure,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
