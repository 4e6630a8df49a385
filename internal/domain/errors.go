package domain

import "errors"

var (
	// ErrMissingUserID signals a search without the user_id header.
	ErrMissingUserID = errors.New("missing user_id header")
	// ErrInvalidDateFormat signals a date that is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format, use YYYY-MM-DD")
	// ErrInvalidRequest signals any other rejected query or document parameter.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals that the user exhausted their request allowance.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrEmbeddingFailure signals that the query or document could not be embedded.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrStoreUnavailable signals a document store or counter store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTimeout signals that a downstream call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)
