// Package llm provides language-model clients for completion and embedding.
// All providers are wrapped with circuit breaker protection so a failing
// model endpoint degrades gracefully instead of stalling conversation turns.
package llm

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates the language model could not produce a
// completion (transport failure, timeout, or open circuit). Callers convert
// this into a degraded assistant message; it is never surfaced verbatim to
// the patient.
var ErrModelUnavailable = errors.New("language model unavailable")

// TextGenerator is the interface for LLM text completion.
// All orchestration prompts use single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
