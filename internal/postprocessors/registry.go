package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa/internal/postprocessors/semantic"
)

// Names of the built-in processors.
const (
	Semantic = "semantic"
	SizeCap  = "chunker"
)

// Params are one processor's settings. Numbers may arrive as any of the
// types TOML or JSON decoding produces.
type Params map[string]any

// Int returns key as an int, or def when it is missing or not a number.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns key as a float64, or def when it is missing or not a number.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Step is one entry of a pipeline.
type Step struct {
	Name   string
	Params Params
}

// Deps are the services builders may draw on.
type Deps struct {
	Embedder driven.EmbeddingService
}

// Builder makes a processor from its params.
type Builder func(Params, Deps) (driven.PostProcessor, error)

// Registry maps processor names to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry holding the built-in processors.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{
		Semantic: buildSemantic,
		SizeCap:  buildSizeCap,
	}}
}

// Register adds or replaces a builder.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

// Names returns the registered processor names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// Build makes a pipeline running steps in order.
func (r *Registry) Build(steps []Step, deps Deps) (*Pipeline, error) {
	pipeline := NewPipeline()
	for _, step := range steps {
		build, ok := r.builders[step.Name]
		if !ok {
			return nil, fmt.Errorf("unknown processor %q", step.Name)
		}
		p, err := build(step.Params, deps)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", step.Name, err)
		}
		pipeline.Add(p)
	}
	return pipeline, nil
}

// DefaultSteps splits text where meaning shifts, then re-splits any
// passage longer than the size cap.
func DefaultSteps(t domain.Thresholds) []Step {
	return []Step{
		{Name: Semantic, Params: Params{
			"buffer_size":           t.BufferSize,
			"breakpoint_percentile": t.BreakpointPercentile,
		}},
		{Name: SizeCap, Params: Params{
			"chunk_size": t.MaxChunkChars,
			"overlap":    0,
		}},
	}
}

func buildSemantic(p Params, deps Deps) (driven.PostProcessor, error) {
	if deps.Embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	opts := []semantic.Option{semantic.WithBufferSize(p.Int("buffer_size", semantic.DefaultBufferSize))}
	if pct := p.Float("breakpoint_percentile", 0); pct > 0 {
		opts = append(opts, semantic.WithBreakpointPercentile(pct))
	}
	return semantic.New(deps.Embedder, opts...), nil
}

func buildSizeCap(p Params, _ Deps) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if size := p.Int("chunk_size", 0); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap := p.Int("overlap", -1); overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return chunker.New(opts...), nil
}
