package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgFixture = `{
	"Heading": "Post-surgery swelling",
	"AbstractText": "Swelling after surgery is common and usually resolves within weeks.",
	"AbstractURL": "https://example.org/abstract",
	"RelatedTopics": [
		{"Text": "Swelling management - elevation and compression help reduce fluid buildup.", "FirstURL": "https://example.org/one"},
		{"Text": "Orphan topic without a link"},
		{"Topics": [
			{"Text": "Nested topic - when to call a doctor about swelling.", "FirstURL": "https://example.org/two"}
		]}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, maxResults int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:    srv.URL,
		MaxResults: maxResults,
		Timeout:    2 * time.Second,
	})
}

func TestSearchParsesAbstractAndTopics(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Contains(t, r.URL.Query().Get("q"), "swelling")
		_, _ = w.Write([]byte(ddgFixture))
	}, 5)

	results, err := client.Search(context.Background(), "post-surgery swelling")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Post-surgery swelling", results[0].Title)
	assert.Equal(t, "https://example.org/abstract", results[0].URL)

	// The orphan topic without a URL is dropped.
	for _, r := range results {
		assert.NotEmpty(t, r.URL)
		assert.NotEmpty(t, r.Snippet)
	}
}

func TestSearchBoundsResultCount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ddgFixture))
	}, 2)

	results, err := client.Search(context.Background(), "swelling")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchTruncatesLongSnippets(t *testing.T) {
	long := strings.Repeat("swelling guidance ", 40)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Heading":"H","AbstractText":"` + long + `","AbstractURL":"https://example.org"}`))
	}, 5)

	results, err := client.Search(context.Background(), "swelling")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.LessOrEqual(t, len(results[0].Snippet), maxSnippetLen+3)
	assert.True(t, strings.HasSuffix(results[0].Snippet, "..."))
}

func TestSearchServerErrorMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, 5)

	_, err := client.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSearchMalformedBodyMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}, 5)

	_, err := client.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSearchEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, 5)

	results, err := client.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTruncateCutsOnRuneBoundary(t *testing.T) {
	long := "a" + strings.Repeat("日", 150)

	out := truncate(long)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), maxSnippetLen+3)
}

func TestTitleFromTextCutsOnRuneBoundary(t *testing.T) {
	out := titleFromText("a" + strings.Repeat("日", 40))

	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 60)
}
