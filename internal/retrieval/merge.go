package retrieval

import (
	"strings"

	"github.com/carebridge/aftercare/pkg/types"
)

// MergeCitations combines document and web citations into one ordered list.
// Document citations come first in their ranked order, then web citations in
// search order. Near-duplicate snippets are collapsed, keeping the document
// version when the duplicate spans both sources. Final citation IDs are
// assigned sequentially from 1 in the merged order, so any subset of them is
// safe to render as [n] markers.
func MergeCitations(docs, web []types.Citation) []types.Citation {
	merged := make([]types.Citation, 0, len(docs)+len(web))
	seen := make([]string, 0, len(docs)+len(web))

	for _, c := range append(append([]types.Citation{}, docs...), web...) {
		key := normalizeSnippet(c.Content)
		if key == "" {
			key = normalizeSnippet(c.Title)
		}
		if isDuplicate(seen, key) {
			continue
		}
		seen = append(seen, key)
		merged = append(merged, c)
	}

	for i := range merged {
		merged[i].ID = i + 1
	}
	return merged
}

// isDuplicate reports whether key near-matches an already kept snippet.
// Exact normalized equality and containment both count: a truncated web
// snippet of a document chunk should not appear twice.
func isDuplicate(seen []string, key string) bool {
	for _, s := range seen {
		if s == key {
			return true
		}
		if len(key) >= 40 && len(s) >= 40 {
			if strings.Contains(s, key) || strings.Contains(key, s) {
				return true
			}
		}
	}
	return false
}

func normalizeSnippet(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
