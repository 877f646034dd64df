// Command aftercare-ingest loads markdown guideline documents into the
// knowledge store: parse frontmatter, chunk, embed, upsert. It runs offline;
// the API server only ever reads the resulting corpus.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/internal/ingest"
	"github.com/carebridge/aftercare/internal/llm"
	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/internal/storage/postgres"
	"github.com/carebridge/aftercare/internal/storage/sqlite"
	"github.com/carebridge/aftercare/pkg/types"
)

func main() {
	docsDir := flag.String("docs", "./data/guidelines", "Directory of markdown guideline files")
	chunkSize := flag.Int("chunk-size", 1500, "Maximum chunk size in characters")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize embedding generator: %v", err)
	}

	store, err := openStore(cfg, embedder)
	if err != nil {
		log.Fatalf("Failed to initialize knowledge store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	chunker := &ingest.Chunker{MaxChunkSize: *chunkSize}

	var files []string
	err = filepath.WalkDir(*docsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", *docsDir, err)
	}
	if len(files) == 0 {
		log.Fatalf("No markdown files found under %s", *docsDir)
	}

	start := time.Now()
	total := 0
	for _, path := range files {
		n, err := ingestFile(ctx, store, embedder, chunker, path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		log.Printf("Ingested %s (%d chunks)", path, n)
		total += n
	}

	count, err := store.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count chunks: %v", err)
	}
	log.Printf("Done: %d chunks ingested from %d files in %s (store now holds %d)",
		total, len(files), time.Since(start).Round(time.Millisecond), count)
}

// ingestFile parses, chunks, embeds, and stores one guideline document.
// Chunk IDs are derived from the document title and position so re-running
// ingestion updates chunks in place instead of duplicating them.
func ingestFile(ctx context.Context, store storage.KnowledgeStore, embedder llm.EmbeddingGenerator, chunker *ingest.Chunker, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	doc, err := ingest.ParseMarkdown(content, path)
	if err != nil {
		return 0, err
	}

	spans := chunker.Chunk(doc.Body)
	chunks := make([]types.KnowledgeChunk, 0, len(spans))
	for i, span := range spans {
		embedding, err := embedder.Embed(ctx, span)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks = append(chunks, types.KnowledgeChunk{
			ID:        fmt.Sprintf("%s:%04d", slugify(doc.Title), i),
			Title:     doc.Title,
			Text:      span,
			Embedding: embedding,
		})
	}

	if err := store.Add(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func openStore(cfg *config.Config, embedder storage.Embedder) (storage.KnowledgeStore, error) {
	switch cfg.Storage.StorageEngine {
	case "sqlite", "":
		return sqlite.Open(cfg.Storage.DataPath, embedder)
	case "postgres":
		return postgres.Open(cfg.Storage.PostgresDSN, embedder)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.StorageEngine)
	}
}
