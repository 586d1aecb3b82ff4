package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ExtractorService converts normalised documents into page-tagged text.
type ExtractorService interface {
	// Extract processes documents in submission order. Documents that fail
	// are reported in the returned batch instead of aborting it.
	// Returns domain.ErrEmptyCorpus if no document yields text.
	Extract(ctx context.Context, docs []domain.Document) (*ExtractionBatch, error)
}

// ExtractionBatch is the outcome of one extraction run.
type ExtractionBatch struct {
	// Texts holds one entry per document that produced text.
	Texts []domain.ExtractedText

	// Rejected lists documents that produced no text.
	Rejected []Rejection

	// OCRLoads counts how many times the OCR engine was loaded.
	OCRLoads int
}

// Rejection records a document dropped from a batch and why.
type Rejection struct {
	Name   string
	Reason string
}

// ChunkerService splits extracted text into passages.
type ChunkerService interface {
	// Chunk splits text from source. Blank text yields no chunks.
	Chunk(ctx context.Context, text, source string) ([]domain.Chunk, error)
}
