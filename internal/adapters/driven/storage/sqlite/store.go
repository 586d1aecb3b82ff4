package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// IndexFile is the database file name inside a knowledge base directory.
const IndexFile = "index.db"

const metaEmbeddingModel = "embedding_model"

// Ensure the store types implement the interfaces.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.VectorIndex = (*Index)(nil)
)

// Store opens SQLite-backed vector indexes, one database per directory.
type Store struct{}

// NewStore creates a new SQLite vector store.
func NewStore() *Store {
	return &Store{}
}

// Open returns the index in dir, creating the directory and schema if absent.
func (s *Store) Open(ctx context.Context, dir string) (driven.VectorIndex, error) {
	return OpenIndex(ctx, dir)
}

// Exists reports whether dir holds an index database.
func (s *Store) Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, IndexFile))
	return err == nil && !info.IsDir()
}

// Remove deletes the knowledge base directory.
func (s *Store) Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing index %s: %w", dir, err)
	}
	return nil
}

// Index is a knowledge base stored in a single SQLite database.
type Index struct {
	db   *sql.DB
	path string
}

// OpenIndex opens or creates the index database in dir.
func OpenIndex(ctx context.Context, dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, IndexFile)

	// WAL lets readers proceed while a batch is being written
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{db: db, path: dbPath}
	if err := idx.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return idx, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// migrate runs all pending migrations.
func (i *Index) migrate(ctx context.Context, fsys embed.FS) error {
	_, err := i.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := i.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := i.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := i.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// AddBatch stores chunks in one transaction. Existing IDs are skipped.
func (i *Index) AddBatch(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	dims := len(chunks[0].Embedding)
	for _, c := range chunks {
		if c.ID == "" {
			return 0, fmt.Errorf("chunk without id: %w", domain.ErrInvalidInput)
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != dims {
			return 0, fmt.Errorf("chunk %s: embedding has %d dimensions, want %d: %w",
				c.ID, len(c.Embedding), dims, domain.ErrInvalidInput)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	if err := checkDimensions(ctx, tx, dims); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, position, content, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, c := range chunks {
		res, err := stmt.ExecContext(ctx, c.ID, c.Source, c.Position, c.Content, float32SliceToBytes(c.Embedding))
		if err != nil {
			return 0, fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}
	return added, nil
}

// checkDimensions rejects vectors whose size differs from those already stored.
func checkDimensions(ctx context.Context, tx *sql.Tx, dims int) error {
	var existing []byte
	err := tx.QueryRowContext(ctx, "SELECT embedding FROM chunks LIMIT 1").Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stored dimensions: %w", err)
	}
	if have := len(existing) / 4; have != dims {
		return fmt.Errorf("index holds %d-dimensional vectors, got %d: %w",
			have, dims, domain.ErrEmbeddingMismatch)
	}
	return nil
}

// Search scans every stored vector and returns the k most similar.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	rows, err := i.db.QueryContext(ctx, "SELECT id, source, position, content, embedding FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.Position, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		hits = append(hits, driven.VectorHit{
			Chunk:      c,
			Similarity: domain.CosineSimilarity(query, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].Chunk.ID < hits[b].Chunk.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Sources returns the distinct chunk sources, sorted.
func (i *Index) Sources(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, "SELECT DISTINCT source FROM chunks ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// EmbeddingModel returns the recorded embedding model, or "".
func (i *Index) EmbeddingModel(ctx context.Context) (string, error) {
	var model string
	err := i.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaEmbeddingModel).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading embedding model: %w", err)
	}
	return model, nil
}

// SetEmbeddingModel records the embedding model.
func (i *Index) SetEmbeddingModel(ctx context.Context, model string) error {
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaEmbeddingModel, model)
	if err != nil {
		return fmt.Errorf("saving embedding model: %w", err)
	}
	return nil
}

// float32SliceToBytes converts a float32 slice to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts little-endian bytes to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
