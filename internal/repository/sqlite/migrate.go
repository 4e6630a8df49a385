// Package sqlite stores documents in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrator applies the document schema. Caller provides an opened *sql.DB.
type Migrator struct{}

// Up creates tables and indexes. Idempotent.
func (Migrator) Up(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            content TEXT NOT NULL,
            embedding TEXT NOT NULL DEFAULT '[]',
            created_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
