package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure the vector types implement the interfaces.
var (
	_ driven.VectorStore = (*VectorStore)(nil)
	_ driven.VectorIndex = (*VectorIndex)(nil)
)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Indexes are keyed by directory and live as long as the store.
type VectorStore struct {
	mu      sync.Mutex
	indexes map[string]*VectorIndex
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{indexes: make(map[string]*VectorIndex)}
}

// Open returns the index for dir, creating it if absent.
func (s *VectorStore) Open(_ context.Context, dir string) (driven.VectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[dir]
	if !ok {
		idx = &VectorIndex{chunks: make(map[string]domain.Chunk)}
		s.indexes[dir] = idx
	}
	return idx, nil
}

// Exists reports whether an index was opened for dir.
func (s *VectorStore) Exists(dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.indexes[dir]
	return ok
}

// Remove drops the index for dir.
func (s *VectorStore) Remove(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, dir)
	return nil
}

// VectorIndex is an in-memory knowledge base.
type VectorIndex struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	order  []string
	model  string
	dims   int
}

// AddBatch stores chunks atomically, skipping known IDs.
func (v *VectorIndex) AddBatch(_ context.Context, chunks []domain.Chunk) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dims := v.dims
	for _, c := range chunks {
		if c.ID == "" || len(c.Embedding) == 0 {
			return 0, fmt.Errorf("chunk %q: %w", c.ID, domain.ErrInvalidInput)
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return 0, fmt.Errorf("chunk %s: embedding has %d dimensions, want %d: %w",
				c.ID, len(c.Embedding), dims, domain.ErrEmbeddingMismatch)
		}
	}

	added := 0
	for _, c := range chunks {
		if _, ok := v.chunks[c.ID]; ok {
			continue
		}
		c.Embedding = append([]float32(nil), c.Embedding...)
		v.chunks[c.ID] = c
		v.order = append(v.order, c.ID)
		added++
	}
	v.dims = dims
	return added, nil
}

// Search returns the k chunks most similar to query.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(v.order))
	for _, id := range v.order {
		c := v.chunks[id]
		sim := domain.CosineSimilarity(query, c.Embedding)
		c.Embedding = nil
		hits = append(hits, driven.VectorHit{Chunk: c, Similarity: sim})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks), nil
}

// Sources returns the distinct chunk sources, sorted.
func (v *VectorIndex) Sources(_ context.Context) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range v.chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			out = append(out, c.Source)
		}
	}
	sort.Strings(out)
	return out, nil
}

// EmbeddingModel returns the recorded model.
func (v *VectorIndex) EmbeddingModel(_ context.Context) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.model, nil
}

// SetEmbeddingModel records the model.
func (v *VectorIndex) SetEmbeddingModel(_ context.Context, model string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.model = model
	return nil
}

// Close is a no-op; the index stays in the store.
func (v *VectorIndex) Close() error {
	return nil
}
