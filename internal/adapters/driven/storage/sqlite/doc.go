// Package sqlite provides a SQLite-backed implementation of driven.VectorStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each knowledge base is one database file
// (index.db) inside its own directory, holding:
//
//   - chunks: passage text, source filename, position and embedding vector
//   - meta: the embedding model the index was built with
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Writes
//
// AddBatch inserts a whole batch in one transaction with ON CONFLICT DO NOTHING,
// so a failed batch leaves no partial state and a retried batch adds nothing twice.
//
// # Search
//
// Search is an exact scan with cosine similarity. Knowledge bases are bounded by
// upload limits, which keeps a full scan fast.
package sqlite
