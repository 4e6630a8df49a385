// Package db defines the key-value contracts shared by the Redis/Valkey and in-memory backends.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis-backed repositories need from one connection.
type Store interface {
	Pinger
	KVStore
	HashStore
	ScriptRunner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore backs the result cache and the embedding cache.
// Get returns ErrKeyNotFound for absent or expired keys.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HashStore holds documents as hashes and enumerates them by key pattern.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// ScriptRunner evaluates server-side scripts that reply with an integer.
type ScriptRunner interface {
	EvalInt(ctx context.Context, script string, keys, args []string) (int64, error)
}
