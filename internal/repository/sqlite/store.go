package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
)

// Store keeps documents in a single table; embeddings are JSON arrays.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := (Migrator{}).Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close() //nolint:wrapcheck // passthrough
}

// Insert writes a document, replacing any document with the same ID.
func (s *Store) Insert(ctx context.Context, doc *domdoc.Document) error {
	emb, err := json.Marshal(doc.Embedding())
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(id, title, content, embedding, created_at) VALUES(?,?,?,?,?)
         ON CONFLICT(id) DO UPDATE SET title=excluded.title, content=excluded.content,
         embedding=excluded.embedding, created_at=excluded.created_at`,
		doc.ID(), doc.Title(), doc.Content(), string(emb), doc.CreatedAt().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID(), err)
	}
	return nil
}

// Scan returns all searchable documents matching f, oldest first.
// LIKE matching folds ASCII case only.
func (s *Store) Scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error) {
	where, args := buildWhere(f)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, embedding, created_at FROM documents WHERE `+where+
			` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []domdoc.Document
	for rows.Next() {
		var (
			id, title, content, emb string
			createdMs               int64
		)
		if err := rows.Scan(&id, &title, &content, &emb, &createdMs); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(emb), &vec); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", id, err)
		}
		out = append(out, domdoc.Reconstruct(id, title, content, vec, time.UnixMilli(createdMs)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func buildWhere(f filter.Filter) (string, []any) {
	clauses := []string{`embedding <> '[]'`, `embedding <> 'null'`}
	var args []any

	if f.Text() != "" {
		switch f.Field() {
		case field.FullText:
			var terms []string
			for _, t := range f.Terms() {
				terms = append(terms, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
				p := likePattern(t)
				args = append(args, p, p)
			}
			clauses = append(clauses, "("+strings.Join(terms, " OR ")+")")
		case field.Content:
			clauses = append(clauses, `content LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(f.Text()))
		default:
			clauses = append(clauses, `title LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(f.Text()))
		}
	}

	if start := f.Dates().Start(); start != nil {
		clauses = append(clauses, `created_at >= ?`)
		args = append(args, start.UnixMilli())
	}
	if end := f.Dates().End(); end != nil {
		clauses = append(clauses, `created_at <= ?`)
		args = append(args, end.UnixMilli())
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
