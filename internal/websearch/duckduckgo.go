// Package websearch provides the external web-search fallback used by the
// retrieval engine when document retrieval confidence is insufficient.
//
// The adapter queries the DuckDuckGo Instant Answer API. Results are bounded
// in count and snippet size; any transport or decode failure surfaces as
// ErrSearchUnavailable, which the retrieval engine treats as "no web
// augmentation available" rather than a turn failure.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/carebridge/aftercare/internal/llm"
	"github.com/carebridge/aftercare/pkg/types"
)

// ErrSearchUnavailable indicates the web search provider could not be reached
// or returned an unusable response.
var ErrSearchUnavailable = errors.New("web search unavailable")

// maxSnippetLen caps the snippet length carried into a citation.
const maxSnippetLen = 300

// Config holds web search client configuration.
type Config struct {
	BaseURL    string        // default: https://api.duckduckgo.com
	MaxResults int           // default: 5
	Timeout    time.Duration // default: 8s
}

// Client performs bounded web searches against DuckDuckGo.
type Client struct {
	cfg            Config
	client         *http.Client
	circuitBreaker *llm.CircuitBreaker
}

// NewClient creates a web search client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.duckduckgo.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: llm.NewCircuitBreaker("websearch"),
	}
}

// ddgResponse is the subset of the Instant Answer API response we consume.
type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// Search queries DuckDuckGo and returns at most MaxResults results.
// Every result carries a non-empty URL; topics without one are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]types.WebResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.search(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return result.([]types.WebResult), nil
}

func (c *Client) search(ctx context.Context, query string) ([]types.WebResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		c.cfg.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	var data ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var results []types.WebResult
	if data.AbstractText != "" && data.AbstractURL != "" {
		results = append(results, types.WebResult{
			Title:   data.Heading,
			Snippet: truncate(data.AbstractText),
			URL:     data.AbstractURL,
		})
	}
	results = appendTopics(results, data.RelatedTopics, c.cfg.MaxResults)

	if len(results) > c.cfg.MaxResults {
		results = results[:c.cfg.MaxResults]
	}
	return results, nil
}

// appendTopics flattens DuckDuckGo's (possibly nested) topic list into
// results, skipping entries without a URL, up to the max.
func appendTopics(results []types.WebResult, topics []ddgTopic, max int) []types.WebResult {
	for _, t := range topics {
		if len(results) >= max {
			break
		}
		if len(t.Topics) > 0 {
			results = appendTopics(results, t.Topics, max)
			continue
		}
		if t.FirstURL == "" || t.Text == "" {
			continue
		}
		results = append(results, types.WebResult{
			Title:   titleFromText(t.Text),
			Snippet: truncate(t.Text),
			URL:     t.FirstURL,
		})
	}
	return results
}

// titleFromText uses the leading clause of a topic text as a title.
func titleFromText(text string) string {
	for i, r := range text {
		if r == '-' || r == '.' {
			if i > 10 {
				return text[:i]
			}
		}
	}
	if len(text) > 60 {
		return text[:runeBoundary(text, 60)]
	}
	return text
}

func truncate(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	return s[:runeBoundary(s, maxSnippetLen)] + "..."
}

// runeBoundary backs max up to the start of a rune so a byte-length cut
// never splits a multibyte character.
func runeBoundary(s string, max int) int {
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return max
}
