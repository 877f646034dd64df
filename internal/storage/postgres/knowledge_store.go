// Package postgres implements the knowledge store on PostgreSQL with the
// pgvector extension for indexed cosine-distance search. It is the backend of
// choice for corpora too large for the in-memory ranking in the sqlite
// backend.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/pkg/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	text       TEXT NOT NULL,
	embedding  vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// KnowledgeStore implements storage.KnowledgeStore backed by PostgreSQL and
// pgvector. Ranking happens server-side via the <=> cosine-distance operator.
type KnowledgeStore struct {
	db       *sql.DB
	embedder storage.Embedder
}

// Open connects to PostgreSQL, ensures the pgvector extension and schema
// exist, and returns a store. Unlike the sqlite backend, a missing pgvector
// extension is a hard error: this backend has no non-vector fallback.
func Open(dsn string, embedder storage.Embedder) (*KnowledgeStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: enable pgvector: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}

	return &KnowledgeStore{db: db, embedder: embedder}, nil
}

// Query embeds text and returns the top-k chunks ranked by cosine similarity.
// Ordering is cosine distance ascending with chunk ID as tiebreaker, so the
// ranking is stable for an unchanged corpus.
func (s *KnowledgeStore) Query(ctx context.Context, text string, k int) ([]storage.ScoredChunk, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", storage.ErrInvalidInput)
	}
	if k <= 0 {
		k = 5
	}

	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", storage.ErrStoreUnavailable, err)
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, text, embedding <=> $1 AS distance
		FROM chunks
		ORDER BY distance, id
		LIMIT $2`, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", storage.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var results []storage.ScoredChunk
	for rows.Next() {
		var chunk types.KnowledgeChunk
		var distance float64
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Text, &distance); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", storage.ErrStoreUnavailable, err)
		}
		// Cosine distance is in [0, 2]; map to a similarity in [0, 1] to
		// match the sqlite backend's score range.
		results = append(results, storage.ScoredChunk{
			Chunk: chunk,
			Score: 1 - distance/2,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", storage.ErrStoreUnavailable, err)
	}

	return results, nil
}

// Add upserts pre-embedded chunks. Used by the offline ingestion CLI.
func (s *KnowledgeStore) Add(ctx context.Context, chunks []types.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, title, text, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return fmt.Errorf("postgres: prepare ingest: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, chunk := range chunks {
		if chunk.ID == "" || len(chunk.Embedding) == 0 {
			return fmt.Errorf("%w: chunk requires id and embedding", storage.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Title, chunk.Text, pgvector.NewVector(chunk.Embedding)); err != nil {
			return fmt.Errorf("postgres: insert chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of ingested chunks.
func (s *KnowledgeStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count chunks: %v", storage.ErrStoreUnavailable, err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *KnowledgeStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.KnowledgeStore = (*KnowledgeStore)(nil)
