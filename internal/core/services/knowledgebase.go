package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure KnowledgeBaseService implements the interface.
var _ driving.KnowledgeBaseService = (*KnowledgeBaseService)(nil)

// embedBatchSize bounds the texts sent in one embedding request.
const embedBatchSize = 64

// KnowledgeBaseService manages per-tenant knowledge bases under one root directory.
type KnowledgeBaseService struct {
	root     string
	store    driven.VectorStore
	embedder driven.EmbeddingService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKnowledgeBaseService creates a service storing knowledge bases under root.
func NewKnowledgeBaseService(root string, store driven.VectorStore, embedder driven.EmbeddingService) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		root:     root,
		store:    store,
		embedder: embedder,
		locks:    make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns a knowledge base for the tenant.
func (s *KnowledgeBaseService) GetOrCreate(ctx context.Context, tenant domain.TenantKey) (domain.KnowledgeBaseHandle, error) {
	if err := tenant.Validate(); err != nil {
		return domain.KnowledgeBaseHandle{}, fmt.Errorf("knowledge base: tenant %q: %w", tenant.Name, err)
	}
	if s.embedder == nil {
		return domain.KnowledgeBaseHandle{}, domain.ErrEmbeddingUnavailable
	}

	handle := domain.KnowledgeBaseHandle{Tenant: tenant, EmbeddingModel: s.embedder.ModelName()}
	if !tenant.IsShared() {
		handle.ID = uuid.New().String()
	}
	handle.Dir = s.dir(handle.Ref())

	lock := s.lock(handle.Dir)
	lock.Lock()
	defer lock.Unlock()

	if tenant.IsShared() && s.store.Exists(handle.Dir) {
		model, err := s.storedModel(ctx, handle.Dir)
		if err != nil {
			return domain.KnowledgeBaseHandle{}, err
		}
		handle.EmbeddingModel = model
		logger.Debug("knowledge base: reusing %s", handle.Ref())
		return handle, nil
	}

	idx, err := s.store.Open(ctx, handle.Dir)
	if err != nil {
		return domain.KnowledgeBaseHandle{}, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	defer idx.Close()

	if err := idx.SetEmbeddingModel(ctx, handle.EmbeddingModel); err != nil {
		return domain.KnowledgeBaseHandle{}, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}

	if tenant.IsShared() {
		if err := s.seed(ctx, idx); err != nil {
			_ = s.store.Remove(handle.Dir)
			return domain.KnowledgeBaseHandle{}, err
		}
	}

	logger.Info("knowledge base: created %s", handle.Ref())
	return handle, nil
}

// seed writes the placeholder entry so the index is never literally empty.
func (s *KnowledgeBaseService) seed(ctx context.Context, idx driven.VectorIndex) error {
	vec, err := s.embedder.Embed(ctx, domain.PlaceholderText)
	if err != nil {
		return &domain.ModelError{Model: s.embedder.ModelName(), Op: "embed", Err: err}
	}
	placeholder := domain.Chunk{
		ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(domain.PlaceholderSource)).String(),
		Source:    domain.PlaceholderSource,
		Content:   domain.PlaceholderText,
		Embedding: vec,
	}
	if _, err := idx.AddBatch(ctx, []domain.Chunk{placeholder}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	return nil
}

// Resolve reconstructs a handle from a persisted reference.
func (s *KnowledgeBaseService) Resolve(ctx context.Context, ref string) (domain.KnowledgeBaseHandle, error) {
	tenant, id, err := domain.ParseKnowledgeBaseRef(ref)
	if err != nil {
		return domain.KnowledgeBaseHandle{}, fmt.Errorf("%w: reference %q", domain.ErrSessionResolution, ref)
	}
	handle := domain.KnowledgeBaseHandle{Tenant: tenant, ID: id}
	handle.Dir = s.dir(handle.Ref())

	if !s.store.Exists(handle.Dir) {
		return domain.KnowledgeBaseHandle{}, fmt.Errorf("%w: %s", domain.ErrSessionResolution, ref)
	}
	model, err := s.storedModel(ctx, handle.Dir)
	if err != nil {
		return domain.KnowledgeBaseHandle{}, err
	}
	handle.EmbeddingModel = model
	return handle, nil
}

// Index embeds chunks and appends them as one all-or-nothing batch.
func (s *KnowledgeBaseService) Index(ctx context.Context, handle domain.KnowledgeBaseHandle, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, domain.ErrNothingToIndex
	}
	if s.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	lock := s.lock(handle.Dir)
	lock.Lock()
	defer lock.Unlock()

	idx, err := s.store.Open(ctx, handle.Dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	defer idx.Close()

	model, err := idx.EmbeddingModel(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	switch {
	case model == "":
		if err := idx.SetEmbeddingModel(ctx, s.embedder.ModelName()); err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
		}
	case model != s.embedder.ModelName():
		return 0, fmt.Errorf("%w: index uses %s, configured %s", domain.ErrEmbeddingMismatch, model, s.embedder.ModelName())
	}

	embedded, err := s.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	added, err := idx.AddBatch(ctx, embedded)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}

	logger.Info("knowledge base: %s indexed %d new of %d chunks", handle.Ref(), added, len(chunks))
	return added, nil
}

func (s *KnowledgeBaseService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	for start := 0; start < len(out); start += embedBatchSize {
		end := min(start+embedBatchSize, len(out))
		texts := make([]string, 0, end-start)
		for _, c := range out[start:end] {
			texts = append(texts, c.Content)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, &domain.ModelError{Model: s.embedder.ModelName(), Op: "embed", Err: err}
		}
		if len(vectors) != len(texts) {
			return nil, &domain.ModelError{
				Model: s.embedder.ModelName(),
				Op:    "embed",
				Err:   fmt.Errorf("got %d embeddings for %d texts", len(vectors), len(texts)),
			}
		}
		for i, v := range vectors {
			out[start+i].Embedding = v
		}
	}
	return out, nil
}

// Destroy removes the knowledge base from disk.
func (s *KnowledgeBaseService) Destroy(_ context.Context, handle domain.KnowledgeBaseHandle) error {
	if handle.Dir == "" {
		return nil
	}
	lock := s.lock(handle.Dir)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Remove(handle.Dir); err != nil {
		return fmt.Errorf("knowledge base: destroy %s: %w", handle.Ref(), err)
	}
	s.mu.Lock()
	delete(s.locks, handle.Dir)
	s.mu.Unlock()
	logger.Info("knowledge base: destroyed %s", handle.Ref())
	return nil
}

// Info summarises the knowledge base.
func (s *KnowledgeBaseService) Info(ctx context.Context, handle domain.KnowledgeBaseHandle) (domain.KnowledgeBaseInfo, error) {
	if !s.store.Exists(handle.Dir) {
		return domain.KnowledgeBaseInfo{}, fmt.Errorf("knowledge base %s: %w", handle.Ref(), domain.ErrNotFound)
	}
	idx, err := s.store.Open(ctx, handle.Dir)
	if err != nil {
		return domain.KnowledgeBaseInfo{}, err
	}
	defer idx.Close()

	count, err := idx.Count(ctx)
	if err != nil {
		return domain.KnowledgeBaseInfo{}, err
	}
	sources, err := idx.Sources(ctx)
	if err != nil {
		return domain.KnowledgeBaseInfo{}, err
	}
	model, err := idx.EmbeddingModel(ctx)
	if err != nil {
		return domain.KnowledgeBaseInfo{}, err
	}

	visible := sources[:0:0]
	for _, src := range sources {
		if src == domain.PlaceholderSource {
			count--
			continue
		}
		visible = append(visible, src)
	}

	return domain.KnowledgeBaseInfo{
		Handle:         handle,
		ChunkCount:     count,
		Sources:        visible,
		EmbeddingModel: model,
	}, nil
}

// dir returns the directory for a persisted reference.
func (s *KnowledgeBaseService) dir(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func (s *KnowledgeBaseService) storedModel(ctx context.Context, dir string) (string, error) {
	idx, err := s.store.Open(ctx, dir)
	if err != nil {
		return "", err
	}
	defer idx.Close()
	return idx.EmbeddingModel(ctx)
}

// lock returns the writer lock for one knowledge base directory.
func (s *KnowledgeBaseService) lock(dir string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		s.locks[dir] = l
	}
	return l
}

// isResolutionError reports whether err means a knowledge base is gone.
func isResolutionError(err error) bool {
	return errors.Is(err, domain.ErrSessionResolution)
}
