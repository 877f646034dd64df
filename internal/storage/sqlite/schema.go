package sqlite

// schemaSQL defines the chunks table for the ingested reference corpus.
// Embeddings are stored inline as little-endian float32 BLOBs; the corpus is
// fixed after ingestion and small enough to rank in memory at query time.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunks_title ON chunks(title);
`
