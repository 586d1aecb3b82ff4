package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ProviderProbe checks that configured model providers answer before the
// pipeline depends on them. Unconfigured providers pass.
type ProviderProbe interface {
	ProbeEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) error
	ProbeLLM(ctx context.Context, cfg *domain.LLMSettings) error

	// ProbeReranker only contacts remote rerankers; the lexical one has no server.
	ProbeReranker(ctx context.Context, cfg *domain.RerankSettings) error
}
