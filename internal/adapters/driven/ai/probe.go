package ai

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.ProviderProbe = (*Probe)(nil)

// Probe starts each provider the way the pipeline would and closes it again.
type Probe struct{}

// NewProbe returns a provider probe.
func NewProbe() *Probe {
	return &Probe{}
}

func (Probe) ProbeEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, cfg)
	if svc != nil {
		svc.Close()
	}
	return err
}

func (Probe) ProbeLLM(ctx context.Context, cfg *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, cfg)
	if svc != nil {
		svc.Close()
	}
	return err
}

func (Probe) ProbeReranker(ctx context.Context, cfg *domain.RerankSettings) error {
	r, err := RerankerLoader(*cfg)(ctx)
	if r != nil {
		r.Close()
	}
	return err
}
