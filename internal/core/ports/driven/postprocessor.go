package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// PostProcessor is one stage of chunking. The first stage of a pipeline
// receives nil chunks and cuts text into passages; later stages refine the
// passages they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, source, text string, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs stages in order and assigns positions and ids
// to the result.
type PostProcessorPipeline interface {
	Process(ctx context.Context, source, text string) ([]domain.Chunk, error)
}
