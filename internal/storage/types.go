package storage

import (
	"errors"

	"github.com/carebridge/aftercare/pkg/types"
)

var (
	// ErrStoreUnavailable indicates the underlying index or embedding
	// provider cannot be reached. The retrieval engine treats this as
	// "insufficient confidence" and falls back to web search rather than
	// failing the conversation turn.
	ErrStoreUnavailable = errors.New("knowledge store unavailable")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// ScoredChunk pairs a knowledge chunk with its similarity score for a query.
type ScoredChunk struct {
	Chunk types.KnowledgeChunk
	Score float64
}
