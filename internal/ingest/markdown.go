// Package ingest turns markdown guideline documents into embedded knowledge
// chunks for the knowledge store. Ingestion is an offline process driven by
// cmd/aftercare-ingest; nothing here runs on the per-turn path.
package ingest

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one parsed guideline file.
type Document struct {
	// Title comes from frontmatter "title", the first H1 heading, or the
	// filename, in that order of preference.
	Title string

	// Body is the markdown content with frontmatter stripped.
	Body string

	// Frontmatter holds the parsed YAML frontmatter key/value pairs.
	Frontmatter map[string]interface{}
}

// ParseMarkdown parses a guideline file's content. path is used only to
// derive a fallback title.
func ParseMarkdown(content []byte, path string) (*Document, error) {
	text := string(content)

	fm, body, err := splitFrontmatter(text)
	if err != nil {
		return nil, fmt.Errorf("frontmatter parse error in %s: %w", path, err)
	}

	title := titleFromPath(path)
	if fmTitle, ok := fm["title"].(string); ok && fmTitle != "" {
		title = fmTitle
	} else if h1 := extractH1(body); h1 != "" {
		title = h1
	}

	return &Document{
		Title:       title,
		Body:        body,
		Frontmatter: fm,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between --- delimiters) from
// the markdown body. Returns an empty map and the full text when no
// frontmatter is found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return map[string]interface{}{}, text, nil
	}

	fmText := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")

	fm := map[string]interface{}{}
	if strings.TrimSpace(fmText) != "" {
		if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
			return nil, "", err
		}
	}

	return fm, body, nil
}

// extractH1 finds the first top-level markdown heading in the body.
func extractH1(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}

// titleFromPath derives a title from the filename without its extension.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
