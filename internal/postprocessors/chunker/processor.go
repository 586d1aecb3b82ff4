// Package chunker provides a fixed-size text chunking processor.
// It creates windows from raw text when it runs first, and splits
// oversized chunks when it runs after another chunker.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits text into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process windows the text when chunks is nil, otherwise splits every
// chunk longer than the chunk size and keeps the others untouched.
func (p *Processor) Process(_ context.Context, source, text string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if chunks == nil {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return p.window(source, text), nil
	}

	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Content) <= p.chunkSize {
			out = append(out, c)
			continue
		}
		out = append(out, p.window(source, c.Content)...)
	}
	return out, nil
}

// window cuts text into chunkSize windows stepping by chunkSize-overlap.
// Cuts prefer the last whitespace inside the window.
func (p *Processor) window(source, text string) []domain.Chunk {
	runes := []rune(text)
	total := len(runes)

	// Estimate number of chunks
	estimatedChunks := (total / (p.chunkSize - p.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	start := 0
	for start < total {
		end := start + p.chunkSize
		if end >= total {
			end = total
		} else if cut := lastSpace(runes, start+p.chunkSize/2, end); cut > start {
			end = cut
		}

		chunks = append(chunks, domain.Chunk{
			Source:  source,
			Content: string(runes[start:end]),
		})
		if end == total {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func lastSpace(runes []rune, min, max int) int {
	for i := max - 1; i >= min && i > 0; i-- {
		switch runes[i] {
		case ' ', '\n', '\t':
			return i + 1
		}
	}
	return -1
}
