// Package sqlite implements the knowledge store on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/pkg/types"
)

// KnowledgeStore implements storage.KnowledgeStore backed by SQLite.
// Query embeds the incoming text with the configured Embedder and ranks all
// stored chunks by cosine similarity in memory. For the fixed nephrology
// reference corpus (a few thousand chunks) this is faster than maintaining an
// ANN index; larger corpora should use the postgres/pgvector backend.
type KnowledgeStore struct {
	db       *sql.DB
	embedder storage.Embedder
}

// Open opens (or creates) the chunk database under dataPath and applies the
// schema. The embedder is used at query time only; ingestion receives
// pre-embedded chunks.
func Open(dataPath string, embedder storage.Embedder) (*KnowledgeStore, error) {
	dbPath := filepath.Join(dataPath, "knowledge.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &KnowledgeStore{db: db, embedder: embedder}, nil
}

// Query embeds text and returns the top-k chunks by cosine similarity,
// ties broken by chunk ID so identical queries on an unchanged corpus return
// identical orderings.
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, text, embedding, dimension
		FROM chunks
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: load chunks: %v", storage.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []storage.ScoredChunk
	for rows.Next() {
		var chunk types.KnowledgeChunk
		var blob []byte
		var dim int
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Text, &blob, &dim); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", storage.ErrStoreUnavailable, err)
		}
		embedding, err := deserializeEmbedding(blob, dim)
		if err != nil {
			// Skip chunks with corrupt embeddings rather than failing the query.
			continue
		}
		chunk.Embedding = embedding
		candidates = append(candidates, storage.ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(queryVec, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", storage.ErrStoreUnavailable, err)
	}

	// Score descending, then chunk ID ascending for deterministic ordering.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Add upserts pre-embedded chunks. Used by the offline ingestion CLI.
func (s *KnowledgeStore) Add(ctx context.Context, chunks []types.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, title, text, embedding, dimension)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			embedding = excluded.embedding,
			dimension = excluded.dimension`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare ingest: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, chunk := range chunks {
		if chunk.ID == "" || len(chunk.Embedding) == 0 {
			return fmt.Errorf("%w: chunk requires id and embedding", storage.ErrInvalidInput)
		}
		blob := serializeEmbedding(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Title, chunk.Text, blob, len(chunk.Embedding)); err != nil {
			return fmt.Errorf("sqlite: insert chunk %s: %w", chunk.ID, err)
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

// serializeEmbedding converts a float32 slice to little-endian bytes.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts little-endian bytes back to a float32 slice.
// dimension is used to validate the buffer size.
func deserializeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(buf) != dimension*4 {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", dimension*4, len(buf))
	}
	embedding := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return embedding, nil
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors, normalized into [0, 1]. Returns 0 if either vector has zero
// magnitude or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp raw cosine [-1, 1] into [0, 1] so scores compare against the
	// configured confidence threshold on a consistent range.
	return (sim + 1) / 2
}

// Compile-time assertion.
var _ storage.KnowledgeStore = (*KnowledgeStore)(nil)
