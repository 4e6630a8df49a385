package health

import "context"

// Pinger is satisfied by the KV store and every document store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker is satisfied by the embedder chain; it reaches the provider.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
