package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/pkg/types"
)

// mockStore returns canned scored chunks or an error.
type mockStore struct {
	chunks []storage.ScoredChunk
	err    error
	calls  int
}

func (m *mockStore) Query(ctx context.Context, text string, k int) ([]storage.ScoredChunk, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

func (m *mockStore) Add(ctx context.Context, chunks []types.KnowledgeChunk) error { return nil }
func (m *mockStore) Count(ctx context.Context) (int, error)                       { return len(m.chunks), nil }
func (m *mockStore) Close() error                                                 { return nil }

// mockSearcher returns canned web results or an error.
type mockSearcher struct {
	results []types.WebResult
	err     error
	calls   int
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]types.WebResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func scored(id, title, text string, score float64) storage.ScoredChunk {
	return storage.ScoredChunk{
		Chunk: types.KnowledgeChunk{ID: id, Title: title, Text: text},
		Score: score,
	}
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{TopK: 5, MinConfidence: 0.45}
}

func TestRetrieveConfidentSkipsWeb(t *testing.T) {
	store := &mockStore{chunks: []storage.ScoredChunk{
		scored("a:0001", "Diet Guide", "Limit sodium intake after discharge.", 0.82),
		scored("a:0002", "Diet Guide", "Avoid processed foods high in salt.", 0.61),
	}}
	web := &mockSearcher{results: []types.WebResult{{Title: "w", Snippet: "s", URL: "https://example.org"}}}

	engine := NewEngine(store, web, testConfig())
	result := engine.Retrieve(context.Background(), "what can I eat?")

	assert.True(t, result.Confident)
	assert.False(t, result.UsedWebSearch)
	assert.Equal(t, 0, web.calls, "web search must not run on a confident document hit")
	require.Len(t, result.Citations, 2)
	assert.Equal(t, 1, result.Citations[0].ID)
	assert.Equal(t, 2, result.Citations[1].ID)
	assert.Equal(t, types.SourceDocument, result.Citations[0].Source)
}

func TestRetrieveLowConfidenceFallsBackToWeb(t *testing.T) {
	store := &mockStore{chunks: []storage.ScoredChunk{
		scored("a:0001", "Diet Guide", "Limit sodium intake after discharge.", 0.30),
	}}
	web := &mockSearcher{results: []types.WebResult{
		{Title: "Health Site", Snippet: "General recovery guidance for patients.", URL: "https://example.org/r"},
	}}

	engine := NewEngine(store, web, testConfig())
	result := engine.Retrieve(context.Background(), "obscure question")

	assert.False(t, result.Confident)
	assert.True(t, result.UsedWebSearch)
	assert.Equal(t, 1, web.calls)
	require.Len(t, result.Citations, 2)
	// Low-confidence document citations are still kept, ahead of web ones.
	assert.Equal(t, types.SourceDocument, result.Citations[0].Source)
	assert.Equal(t, types.SourceWeb, result.Citations[1].Source)
	assert.NotEmpty(t, result.Citations[1].URL)
}

func TestRetrieveStoreErrorFallsBackToWeb(t *testing.T) {
	store := &mockStore{err: fmt.Errorf("%w: db locked", storage.ErrStoreUnavailable)}
	web := &mockSearcher{results: []types.WebResult{
		{Title: "Health Site", Snippet: "General guidance.", URL: "https://example.org/g"},
	}}

	engine := NewEngine(store, web, testConfig())
	result := engine.Retrieve(context.Background(), "anything")

	assert.False(t, result.Confident)
	assert.True(t, result.UsedWebSearch)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, types.SourceWeb, result.Citations[0].Source)
}

func TestRetrieveEmptyStoreResultsTriggerFallback(t *testing.T) {
	store := &mockStore{}
	web := &mockSearcher{results: []types.WebResult{
		{Title: "W", Snippet: "snippet", URL: "https://example.org"},
	}}

	engine := NewEngine(store, web, testConfig())
	result := engine.Retrieve(context.Background(), "anything")

	assert.True(t, result.UsedWebSearch)
	assert.Len(t, result.Citations, 1)
}

func TestRetrieveBothUnavailableReturnsEmpty(t *testing.T) {
	store := &mockStore{err: storage.ErrStoreUnavailable}
	web := &mockSearcher{err: fmt.Errorf("search down")}

	engine := NewEngine(store, web, testConfig())
	result := engine.Retrieve(context.Background(), "anything")

	assert.Empty(t, result.Citations)
	assert.False(t, result.Confident)
	assert.False(t, result.UsedWebSearch, "a failed web call produced no results to merge")
}

func TestRetrieveNilWebSearcher(t *testing.T) {
	store := &mockStore{chunks: []storage.ScoredChunk{
		scored("a:0001", "Guide", "Some text.", 0.10),
	}}

	engine := NewEngine(store, nil, testConfig())
	result := engine.Retrieve(context.Background(), "anything")

	assert.False(t, result.Confident)
	assert.False(t, result.UsedWebSearch)
	assert.Len(t, result.Citations, 1)
}

func TestRetrieveIsDeterministicOverDocuments(t *testing.T) {
	store := &mockStore{chunks: []storage.ScoredChunk{
		scored("a:0001", "Guide", "First chunk text.", 0.91),
		scored("a:0002", "Guide", "Second chunk text.", 0.85),
		scored("b:0001", "Other", "Third chunk text.", 0.70),
	}}
	engine := NewEngine(store, &mockSearcher{}, testConfig())

	first := engine.Retrieve(context.Background(), "stable query")
	for i := 0; i < 5; i++ {
		again := engine.Retrieve(context.Background(), "stable query")
		assert.Equal(t, first, again)
	}
}

func TestRetrieveDropsWebResultsWithoutURL(t *testing.T) {
	store := &mockStore{}
	web := &mockSearcher{results: []types.WebResult{
		{Title: "No URL", Snippet: "dropped"},
		{Title: "Has URL", Snippet: "kept", URL: "https://example.org/k"},
	}}

	engine := NewEngine(store, web, testConfig())
	result := engine.Retrieve(context.Background(), "anything")

	require.Len(t, result.Citations, 1)
	assert.Equal(t, "https://example.org/k", result.Citations[0].URL)
}

func TestSnippetCutsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("日", 150)

	out := snippet(long)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), snippetLen+3)
}
