package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService runs similarity search followed by cross-encoder reranking.
type RetrievalService struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	models   *ModelRegistry

	candidates int
	final      int
	minScore   float64
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	models *ModelRegistry,
	thresholds domain.Thresholds,
) *RetrievalService {
	candidates := thresholds.CandidateCount
	if candidates <= 0 {
		candidates = 20
	}
	final := thresholds.FinalCount
	if final <= 0 {
		final = 7
	}
	return &RetrievalService{
		store:      store,
		embedder:   embedder,
		models:     models,
		candidates: candidates,
		final:      final,
		minScore:   thresholds.MinRerankScore,
	}
}

// Retrieve returns the best passages for query.
//
//nolint:gocyclo // Sequential pipeline steps with distinct failure modes
func (s *RetrievalService) Retrieve(ctx context.Context, handle domain.KnowledgeBaseHandle, query string) (domain.RetrievalResult, error) {
	result := domain.RetrievalResult{Query: query}

	query = strings.TrimSpace(query)
	if query == "" {
		return result, fmt.Errorf("retrieve: empty query: %w", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return result, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Retrieve")

	if !s.store.Exists(handle.Dir) {
		return result, fmt.Errorf("%w: %s", domain.ErrSessionResolution, handle.Ref())
	}
	idx, err := s.store.Open(ctx, handle.Dir)
	if err != nil {
		return result, fmt.Errorf("retrieve: %w", err)
	}
	defer idx.Close()

	model, err := idx.EmbeddingModel(ctx)
	if err != nil {
		return result, fmt.Errorf("retrieve: %w", err)
	}
	if model != "" && model != s.embedder.ModelName() {
		return result, fmt.Errorf("%w: index uses %s, configured %s", domain.ErrEmbeddingMismatch, model, s.embedder.ModelName())
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return result, &domain.ModelError{Model: s.embedder.ModelName(), Op: "embed", Err: err}
	}

	hits, err := idx.Search(ctx, vec, s.candidates)
	if err != nil {
		return result, fmt.Errorf("retrieve: search: %w", err)
	}
	logger.Debug("retrieve: %d candidates from %s", len(hits), handle.Ref())
	if len(hits) == 0 {
		return result, nil
	}

	candidates := make([]domain.ScoredChunk, len(hits))
	texts := make([]string, len(hits))
	for i, h := range hits {
		candidates[i] = domain.ScoredChunk{Chunk: h.Chunk, Similarity: h.Similarity, Rank: i}
		texts[i] = h.Chunk.Content
	}

	if s.models == nil {
		return result, domain.ErrRerankerUnavailable
	}
	reranker, err := s.models.Reranker(ctx)
	if err != nil {
		return result, err
	}
	scores, err := reranker.Score(ctx, query, texts)
	if err != nil {
		return result, &domain.ModelError{Model: reranker.ModelName(), Op: "rerank", Err: err}
	}
	if len(scores) != len(candidates) {
		return result, &domain.ModelError{
			Model: reranker.ModelName(),
			Op:    "rerank",
			Err:   fmt.Errorf("got %d scores for %d passages", len(scores), len(candidates)),
		}
	}
	for i := range candidates {
		candidates[i].Score = scores[i]
	}

	result.Candidates = Rerank(candidates)
	result.Passages = SelectPassages(result.Candidates, s.minScore, s.final)

	logger.Info("retrieve: %d of %d candidates kept (min score %.2f)", len(result.Passages), len(candidates), s.minScore)
	return result, nil
}

// Rerank orders candidates by descending score. Equal scores keep their
// first-stage order.
func Rerank(candidates []domain.ScoredChunk) []domain.ScoredChunk {
	out := append([]domain.ScoredChunk(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

// SelectPassages drops candidates scoring below minScore and the placeholder
// seed, then keeps at most limit.
func SelectPassages(ranked []domain.ScoredChunk, minScore float64, limit int) []domain.ScoredChunk {
	var out []domain.ScoredChunk
	for _, c := range ranked {
		if c.Score < minScore || c.Source == domain.PlaceholderSource {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}
