// Package semantic provides a chunking processor that cuts text where the
// meaning shifts, measured by embedding distance between adjacent sentences.
package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultBufferSize is the number of neighbouring sentences on each side
// embedded together with a sentence.
const DefaultBufferSize = 1

// DefaultBreakpointPercentile is the distance percentile above which a cut is made.
const DefaultBreakpointPercentile = 95.0

// Processor splits text into semantically coherent chunks.
type Processor struct {
	embedder   driven.EmbeddingService
	bufferSize int
	percentile float64
}

// Option configures the semantic processor.
type Option func(*Processor)

// WithBufferSize sets how many sentences on each side join a sentence's embedding window.
func WithBufferSize(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.bufferSize = n
		}
	}
}

// WithBreakpointPercentile sets the distance percentile that triggers a cut.
func WithBreakpointPercentile(pct float64) Option {
	return func(p *Processor) {
		if pct > 0 && pct <= 100 {
			p.percentile = pct
		}
	}
}

// New creates a semantic processor using embedder for sentence windows.
func New(embedder driven.EmbeddingService, opts ...Option) *Processor {
	p := &Processor{
		embedder:   embedder,
		bufferSize: DefaultBufferSize,
		percentile: DefaultBreakpointPercentile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "semantic"
}

// Process creates chunks from text. Input chunks are ignored.
func (p *Processor) Process(ctx context.Context, source, text string, _ []domain.Chunk) ([]domain.Chunk, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		return []domain.Chunk{{Source: source, Content: sentences[0]}}, nil
	}
	if p.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := max(0, i-p.bufferSize)
		hi := min(len(sentences), i+p.bufferSize+1)
		windows[i] = strings.Join(sentences[lo:hi], " ")
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, windows)
	if err != nil {
		return nil, &domain.ModelError{Model: p.embedder.ModelName(), Op: "embed", Err: err}
	}
	if len(embeddings) != len(windows) {
		return nil, fmt.Errorf("semantic: got %d embeddings for %d sentences", len(embeddings), len(windows))
	}

	distances := make([]float64, len(embeddings)-1)
	for i := range distances {
		distances[i] = 1 - domain.CosineSimilarity(embeddings[i], embeddings[i+1])
	}
	threshold := Percentile(distances, p.percentile)

	var chunks []domain.Chunk
	start := 0
	for i, d := range distances {
		if d > threshold {
			chunks = append(chunks, domain.Chunk{
				Source:  source,
				Content: strings.Join(sentences[start:i+1], " "),
			})
			start = i + 1
		}
	}
	chunks = append(chunks, domain.Chunk{
		Source:  source,
		Content: strings.Join(sentences[start:], " "),
	})

	logger.Debug("semantic: %s split into %d chunks from %d sentences (threshold %.4f)",
		source, len(chunks), len(sentences), threshold)
	return chunks, nil
}

// SplitSentences splits text after sentence-ending punctuation followed by
// whitespace, and at blank lines. Sentences are trimmed; blanks are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	emit := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '?', '!':
			if i+1 < len(runes) && isSpace(runes[i+1]) {
				emit(i + 1)
			}
		case '\n':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				emit(i + 1)
			}
		}
	}
	emit(len(runes))
	return sentences
}

// Percentile returns the pct-th percentile of values using linear
// interpolation between closest ranks.
func Percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
