package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// TextLayerReader extracts the embedded text layer of a PDF, page by page.
type TextLayerReader interface {
	// ReadPages returns one entry per page, numbered from 1.
	// Pages without a text layer have empty text.
	ReadPages(ctx context.Context, path string) ([]domain.PageText, error)

	// PageCount returns the number of pages without extracting text.
	PageCount(path string) (int, error)
}

// Dictionary recognises words for the extraction quality gate.
type Dictionary interface {
	// Contains reports whether the lower-cased word is known.
	Contains(word string) bool

	// Size returns the number of known words.
	Size() int
}
