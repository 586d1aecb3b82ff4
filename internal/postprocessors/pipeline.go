// Package postprocessors provides the chunking pipeline for extracted text.
package postprocessors

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure Pipeline implements the interfaces.
var (
	_ driven.PostProcessorPipeline = (*Pipeline)(nil)
	_ driving.ChunkerService       = (*Pipeline)(nil)
)

// chunkNamespace scopes content-derived chunk ids.
var chunkNamespace = uuid.MustParse("6f1d4f8e-3c1a-5b7e-9d2a-1f0c8b4e7a55")

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the text through all processors in order.
// The first processor receives nil chunks and should create them.
// Subsequent processors receive and may modify the chunks.
func (p *Pipeline) Process(ctx context.Context, source, text string) ([]domain.Chunk, error) {
	if source == "" {
		return nil, fmt.Errorf("source is empty: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []domain.Chunk

	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, source, text, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return finalise(source, chunks), nil
}

// Chunk implements driving.ChunkerService.
func (p *Pipeline) Chunk(ctx context.Context, text, source string) ([]domain.Chunk, error) {
	return p.Process(ctx, source, text)
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// finalise drops blank chunks, numbers them and derives ids from content,
// so the same text from the same source always yields the same ids.
func finalise(source string, chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		position := len(out)
		out = append(out, domain.Chunk{
			ID:       ChunkID(source, position, content),
			Source:   source,
			Position: position,
			Content:  content,
		})
	}
	return out
}

// ChunkID derives a stable id from a chunk's source, position and content.
func ChunkID(source string, position int, content string) string {
	key := source + "\x00" + strconv.Itoa(position) + "\x00" + content
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}
