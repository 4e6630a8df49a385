package chi

import (
	"time"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeMissingUserID     ErrorCode = "missing_user_id"
	CodeInvalidDateFormat ErrorCode = "invalid_date_format"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeRateLimited       ErrorCode = "rate_limit_exceeded"
	CodeEmbeddingFailure  ErrorCode = "embedding_failure"
	CodeStoreUnavailable  ErrorCode = "store_unavailable"
	CodeTimeout           ErrorCode = "timeout"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchResultItem is one ranked document.
type SearchResultItem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	RelevanceScore float64   `json:"relevance_score"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Results       []SearchResultItem `json:"results"`
	Page          int                `json:"page"`
	PageSize      int                `json:"page_size"`
	TotalResults  int                `json:"total_results"`
	InferenceTime float64            `json:"inference_time"` // seconds
	Cached        bool               `json:"cached"`
}

// DocumentInput is one document in an ingest request.
type DocumentInput struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// IngestRequest is the body of POST /documents.
type IngestRequest struct {
	Documents []DocumentInput `json:"documents"`
}

// DocumentResponse is a stored document without its vector.
type DocumentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestResponse is the body of a successful POST /documents.
type IngestResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

// HealthResponse is the body of GET /health/ready.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	return SearchResultItem{
		ID:             r.ID(),
		Title:          r.Title(),
		Content:        r.Content(),
		CreatedAt:      r.CreatedAt(),
		RelevanceScore: r.Score(),
	}
}

func documentToDTO(d *domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID(),
		Title:     d.Title(),
		Content:   d.Content(),
		CreatedAt: d.CreatedAt(),
	}
}
