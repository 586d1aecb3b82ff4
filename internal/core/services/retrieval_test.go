package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestRetrieval(kb *KnowledgeBaseService, reranker *fakeReranker, th domain.Thresholds) *RetrievalService {
	models := NewModelRegistry(nil, rerankerLoaderFor(reranker))
	return NewRetrievalService(kb.store, kb.embedder, models, th)
}

func TestRetrieval_RanksByRerankScore(t *testing.T) {
	ctx := context.Background()
	kb, _, _ := newTestKB(t)
	h, err := kb.GetOrCreate(ctx, aliceTenant)
	require.NoError(t, err)
	_, err = kb.Index(ctx, h, []domain.Chunk{
		{ID: "1", Source: "terms.pdf", Content: "Shipping takes five days."},
		{ID: "2", Source: "terms.pdf", Content: "A refund is paid within thirty days of a return."},
		{ID: "3", Source: "warranty.pdf", Content: "The warranty covers two years."},
	})
	require.NoError(t, err)

	r := newTestRetrieval(kb, &fakeReranker{}, domain.DefaultThresholds())
	res, err := r.Retrieve(ctx, h, "How many days until a refund is paid?")
	require.NoError(t, err)

	require.False(t, res.Empty())
	assert.Equal(t, "2", res.Passages[0].ID)
	assert.Len(t, res.Candidates, 3)
	for i := 1; i < len(res.Candidates); i++ {
		assert.GreaterOrEqual(t, res.Candidates[i-1].Score, res.Candidates[i].Score)
	}
}

func TestRetrieval_MinScoreAndFinalCount(t *testing.T) {
	ctx := context.Background()
	kb, _, _ := newTestKB(t)
	h, err := kb.GetOrCreate(ctx, aliceTenant)
	require.NoError(t, err)
	_, err = kb.Index(ctx, h, []domain.Chunk{
		{ID: "1", Source: "a.pdf", Content: "one"},
		{ID: "2", Source: "a.pdf", Content: "two"},
		{ID: "3", Source: "a.pdf", Content: "three"},
	})
	require.NoError(t, err)

	th := domain.DefaultThresholds()
	th.FinalCount = 1
	th.MinRerankScore = 0.5
	r := newTestRetrieval(kb, &fakeReranker{scores: []float64{0.2, 0.9, 0.7}}, th)

	res, err := r.Retrieve(ctx, h, "which")
	require.NoError(t, err)
	require.Len(t, res.Passages, 1)
	assert.InDelta(t, 0.9, res.Passages[0].Score, 1e-9)
}

func TestRetrieval_PlaceholderOnlyIsEmpty(t *testing.T) {
	ctx := context.Background()
	kb, _, _ := newTestKB(t)
	h, err := kb.GetOrCreate(ctx, acmeTenant)
	require.NoError(t, err)

	r := newTestRetrieval(kb, &fakeReranker{scores: []float64{10}}, domain.DefaultThresholds())
	res, err := r.Retrieve(ctx, h, "What is the refund policy?")
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Sources())
}

func TestRetrieval_Errors(t *testing.T) {
	ctx := context.Background()
	kb, _, embedder := newTestKB(t)
	h, err := kb.GetOrCreate(ctx, aliceTenant)
	require.NoError(t, err)
	_, err = kb.Index(ctx, h, testChunks("a.pdf", "refund"))
	require.NoError(t, err)

	t.Run("empty query", func(t *testing.T) {
		r := newTestRetrieval(kb, &fakeReranker{}, domain.DefaultThresholds())
		_, err := r.Retrieve(ctx, h, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing index", func(t *testing.T) {
		r := newTestRetrieval(kb, &fakeReranker{}, domain.DefaultThresholds())
		_, err := r.Retrieve(ctx, domain.KnowledgeBaseHandle{Dir: "/kb/gone"}, "refund")
		assert.ErrorIs(t, err, domain.ErrSessionResolution)
	})

	t.Run("reranker failure", func(t *testing.T) {
		r := newTestRetrieval(kb, &fakeReranker{err: assert.AnError}, domain.DefaultThresholds())
		_, err := r.Retrieve(ctx, h, "refund")
		assert.ErrorIs(t, err, domain.ErrModelInvocation)
	})

	t.Run("reranker unavailable", func(t *testing.T) {
		r := NewRetrievalService(kb.store, kb.embedder, NewModelRegistry(nil, nil), domain.DefaultThresholds())
		_, err := r.Retrieve(ctx, h, "refund")
		assert.ErrorIs(t, err, domain.ErrRerankerUnavailable)
	})

	t.Run("embedding model changed", func(t *testing.T) {
		embedder.model = "other-model"
		defer func() { embedder.model = "fake-embed" }()
		r := newTestRetrieval(kb, &fakeReranker{}, domain.DefaultThresholds())
		_, err := r.Retrieve(ctx, h, "refund")
		assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
	})
}

func TestRerank_StableOnTies(t *testing.T) {
	in := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "a"}, Score: 1, Rank: 0},
		{Chunk: domain.Chunk{ID: "b"}, Score: 2, Rank: 1},
		{Chunk: domain.Chunk{ID: "c"}, Score: 1, Rank: 2},
		{Chunk: domain.Chunk{ID: "d"}, Score: 2, Rank: 3},
	}

	out := Rerank(in)

	ids := make([]string, len(out))
	for i, c := range out {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
	assert.Equal(t, "a", in[0].ID, "input not reordered")
}

func TestSelectPassages(t *testing.T) {
	ranked := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "p", Source: domain.PlaceholderSource}, Score: 5},
		{Chunk: domain.Chunk{ID: "a", Source: "a.pdf"}, Score: 3},
		{Chunk: domain.Chunk{ID: "b", Source: "b.pdf"}, Score: 2},
		{Chunk: domain.Chunk{ID: "c", Source: "c.pdf"}, Score: -1},
	}

	out := SelectPassages(ranked, 0, 7)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)

	out = SelectPassages(ranked, 0, 1)
	require.Len(t, out, 1)
}
