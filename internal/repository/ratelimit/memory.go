package ratelimit

import (
	"context"
	"sync"
)

// MemoryLimiter keeps counters in process memory (single-node deployments).
type MemoryLimiter struct {
	mu      sync.Mutex
	counts  map[string]int64
	ceiling int64
}

// NewMemory creates an in-memory limiter. ceiling <= 0 selects DefaultCeiling.
func NewMemory(ceiling int64) *MemoryLimiter {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &MemoryLimiter{counts: make(map[string]int64), ceiling: ceiling}
}

// Admit reserves one request for userID unless the ceiling is reached.
func (l *MemoryLimiter) Admit(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[userID] >= l.ceiling {
		return false, nil
	}
	l.counts[userID]++
	return true, nil
}

// Refund releases a reservation taken by Admit.
func (l *MemoryLimiter) Refund(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[userID] > 0 {
		l.counts[userID]--
	}
	return nil
}
