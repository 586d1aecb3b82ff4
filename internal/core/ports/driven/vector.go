package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorStore opens the on-disk indexes backing knowledge bases.
// Each knowledge base lives in its own directory.
type VectorStore interface {
	// Open returns the index in dir, creating an empty one if absent.
	Open(ctx context.Context, dir string) (VectorIndex, error)

	// Exists reports whether dir holds an index.
	Exists(dir string) bool

	// Remove deletes the index in dir. Removing a missing index is not an error.
	Remove(dir string) error
}

// VectorIndex stores chunks with their embeddings and searches them by similarity.
type VectorIndex interface {
	// AddBatch stores chunks atomically: either every chunk is stored or none.
	// Chunks whose ID is already present are skipped, so retrying a batch
	// never duplicates content. Returns the number of chunks newly stored.
	AddBatch(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Search finds the k nearest chunks to the query vector, most similar first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Sources returns the distinct chunk sources, sorted.
	Sources(ctx context.Context) ([]string, error)

	// EmbeddingModel returns the model recorded at build time, or "" if none.
	EmbeddingModel(ctx context.Context) (string, error)

	// SetEmbeddingModel records the model used to build the index.
	SetEmbeddingModel(ctx context.Context, model string) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk, without its embedding.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}
