// Package storage provides the knowledge store interface for the Aftercare
// retrieval engine.
//
// The knowledge store holds the chunked, pre-embedded reference corpus.
// Ingestion (chunking + embedding) is a one-time offline process driven by
// cmd/aftercare-ingest; at runtime the store only answers nearest-neighbor
// queries, so implementations must support concurrent reads without
// contention.
package storage

import (
	"context"

	"github.com/carebridge/aftercare/pkg/types"
)

// KnowledgeStore provides semantic retrieval over the ingested corpus.
type KnowledgeStore interface {
	// Query embeds the text and returns the top-k most similar chunks,
	// sorted by score descending with ties broken by chunk ID ascending
	// so repeated calls on an unchanged corpus return identical rankings.
	// Scores are cosine similarities in [0, 1].
	// Returns an error wrapping ErrStoreUnavailable when the index or the
	// embedding provider cannot be reached.
	Query(ctx context.Context, text string, k int) ([]ScoredChunk, error)

	// Add ingests chunks with their embeddings (upsert by chunk ID).
	// Used only by the offline ingestion path.
	Add(ctx context.Context, chunks []types.KnowledgeChunk) error

	// Count returns the number of ingested chunks.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder generates an embedding vector for a piece of text. It is satisfied
// by the llm package's embedding clients; declaring it here keeps the storage
// layer free of a dependency on the llm package.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
