package postprocessors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return []float32{1}, nil }
func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}
func (stubEmbedder) Dimensions() int              { return 1 }
func (stubEmbedder) ModelName() string            { return "stub" }
func (stubEmbedder) Ping(_ context.Context) error { return nil }
func (stubEmbedder) Close() error                 { return nil }

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{SizeCap, Semantic}, r.Names())

	r.Register("custom", func(Params, Deps) (driven.PostProcessor, error) { return &mockProcessor{}, nil })
	assert.Equal(t, []string{SizeCap, "custom", Semantic}, r.Names())
}

func TestRegistry_BuildCustomStep(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(p Params, _ Deps) (driven.PostProcessor, error) {
		name, _ := p["name"].(string)
		return &mockProcessor{name: name}, nil
	})

	p, err := r.Build([]Step{{Name: "test", Params: Params{"name": "custom"}}}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestRegistry_UnknownStep(t *testing.T) {
	_, err := NewRegistry().Build([]Step{{Name: "missing"}}, Deps{})
	assert.ErrorContains(t, err, `unknown processor "missing"`)
}

func TestRegistry_DefaultSteps(t *testing.T) {
	p, err := NewRegistry().Build(DefaultSteps(domain.DefaultThresholds()), Deps{Embedder: stubEmbedder{}})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	chunks, err := p.Chunk(context.Background(), "Alpha one. Beta two. Gamma three.", "a.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "a.pdf", chunks[0].Source)
}

func TestRegistry_SemanticNeedsEmbedder(t *testing.T) {
	_, err := NewRegistry().Build(DefaultSteps(domain.DefaultThresholds()), Deps{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestParams(t *testing.T) {
	p := Params{"a": 3, "b": int64(4), "c": float64(5.5), "d": "x"}

	assert.Equal(t, 3, p.Int("a", 0))
	assert.Equal(t, 4, p.Int("b", 0))
	assert.Equal(t, 5, p.Int("c", 0))
	assert.Equal(t, 7, p.Int("d", 7))
	assert.Equal(t, -1, p.Int("missing", -1))
	assert.InDelta(t, 5.5, p.Float("c", 0), 1e-9)
	assert.InDelta(t, 3.0, p.Float("a", 0), 1e-9)
	assert.InDelta(t, 0.25, Params(nil).Float("a", 0.25), 1e-9)
}
