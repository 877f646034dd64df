package ingest

import (
	"strings"
	"unicode"
)

// Chunker splits guideline text into overlapping spans sized for embedding.
// It respects sentence boundaries to keep spans semantically coherent and
// overlaps consecutive spans so context at chunk edges is not lost.
type Chunker struct {
	MaxChunkSize int // Maximum chunk size in characters (default: 1500)
	Overlap      int // Overlap size in characters (default: 300)
}

// Chunk splits content into overlapping sentence-aligned spans. Empty input
// yields no chunks; content below MaxChunkSize is returned unchanged as a
// single chunk.
func (c *Chunker) Chunk(content string) []string {
	maxSize := c.MaxChunkSize
	if maxSize <= 0 {
		maxSize = 1500
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= maxSize {
		overlap = maxSize / 5
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= maxSize {
		return []string{content}
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	var tail []string // sentences carried into the next chunk as overlap

	for _, sentence := range sentences {
		if current.Len()+len(sentence) > maxSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()

			// Seed the next chunk with trailing sentences up to the
			// overlap budget.
			carried := 0
			start := len(tail)
			for i := len(tail) - 1; i >= 0; i-- {
				if carried+len(tail[i]) > overlap {
					break
				}
				carried += len(tail[i])
				start = i
			}
			for _, s := range tail[start:] {
				current.WriteString(s)
			}
			tail = tail[start:]
		}

		current.WriteString(sentence)
		tail = append(tail, sentence)
		if len(tail) > 50 {
			tail = tail[len(tail)-50:]
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace. The terminator and trailing whitespace stay attached to the
// sentence so rejoining chunks reproduces the original spacing.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' || runes[i] == '\n' {
			// Consume trailing whitespace into the current sentence.
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
