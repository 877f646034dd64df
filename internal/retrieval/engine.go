// Package retrieval composes the knowledge store and the web search adapter
// into ranked, deduplicated citation lists. The document path is
// deterministic: identical queries over an unchanged corpus produce identical
// citations in identical order. The web path may legitimately vary between
// calls; the UsedWebSearch flag faithfully reports whether it ran.
package retrieval

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/pkg/types"
)

// WebSearcher is the slice of the web search client the engine needs.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]types.WebResult, error)
}

// Engine runs the retrieval algorithm: document query, confidence check,
// web fallback, merge, dedupe, citation numbering.
type Engine struct {
	store         storage.KnowledgeStore
	web           WebSearcher
	topK          int
	minConfidence float64
	storeTimeout  time.Duration
	searchTimeout time.Duration
}

// NewEngine creates a retrieval engine. web may be nil, in which case the
// fallback path is disabled and low-confidence queries return document
// citations only.
func NewEngine(store storage.KnowledgeStore, web WebSearcher, cfg config.RetrievalConfig) *Engine {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	searchTimeout := cfg.SearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = 8 * time.Second
	}
	return &Engine{
		store:         store,
		web:           web,
		topK:          topK,
		minConfidence: cfg.MinConfidence,
		storeTimeout:  storeTimeout,
		searchTimeout: searchTimeout,
	}
}

// Retrieve runs the full retrieval algorithm for a query. It never fails the
// turn: collaborator errors degrade to fewer (possibly zero) citations.
func (e *Engine) Retrieve(ctx context.Context, query string) types.RetrievalResult {
	docCitations, confident := e.queryDocuments(ctx, query)

	var webCitations []types.Citation
	usedWeb := false
	if !confident && e.web != nil {
		webCitations, usedWeb = e.queryWeb(ctx, query)
	}

	merged := MergeCitations(docCitations, webCitations)

	return types.RetrievalResult{
		Citations:     merged,
		UsedWebSearch: usedWeb,
		Confident:     confident,
	}
}

// queryDocuments fetches top-k chunks and converts them to citations.
// The second return reports whether document retrieval alone is sufficient:
// false when the store failed, returned nothing, or the best score fell
// below the configured threshold.
func (e *Engine) queryDocuments(ctx context.Context, query string) ([]types.Citation, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	chunks, err := e.store.Query(ctx, query, e.topK)
	if err != nil {
		log.Printf("retrieval: knowledge store query failed, treating as low confidence: %v", err)
		return nil, false
	}
	if len(chunks) == 0 {
		return nil, false
	}

	citations := make([]types.Citation, 0, len(chunks))
	for _, sc := range chunks {
		score := sc.Score
		citations = append(citations, types.Citation{
			Source:         types.SourceDocument,
			Title:          sc.Chunk.Title,
			Content:        snippet(sc.Chunk.Text),
			RelevanceScore: &score,
		})
	}

	// Confidence is a property of the best hit: one strong match is enough
	// to ground an answer.
	return citations, chunks[0].Score >= e.minConfidence
}

// queryWeb runs the fallback search. The second return reports whether the
// web path actually produced results to merge.
func (e *Engine) queryWeb(ctx context.Context, query string) ([]types.Citation, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	defer cancel()

	results, err := e.web.Search(ctx, query)
	if err != nil {
		log.Printf("retrieval: web search failed, proceeding without web citations: %v", err)
		return nil, false
	}

	citations := make([]types.Citation, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			// A web citation without a URL violates the provenance
			// invariant; drop it.
			continue
		}
		citations = append(citations, types.Citation{
			Source:  types.SourceWeb,
			Title:   r.Title,
			Content: snippet(r.Snippet),
			URL:     r.URL,
		})
	}

	return citations, len(citations) > 0
}

// snippetLen caps citation content length.
const snippetLen = 200

func snippet(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	// Back up to a rune boundary so the cut never splits a multibyte rune.
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
