package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentKind identifies how a normalised document is stored.
type DocumentKind string

// Supported document kinds.
const (
	// DocumentKindPDF is a PDF with or without a text layer.
	DocumentKindPDF DocumentKind = "pdf"

	// DocumentKindImage is a single page image (PNG or JPEG).
	// Images have no text layer and always go through OCR.
	DocumentKindImage DocumentKind = "image"
)

// Document identifies one uploaded file after normalisation.
// Documents are immutable once ingested.
type Document struct {
	// Name is the stable source id, the original filename.
	Name string

	// Path is the normalised file on disk.
	Path string

	// Kind is the normalised container type.
	Kind DocumentKind

	// Tenant is the tenant key that owns the document.
	Tenant string

	// UploadedAt is when the document was accepted.
	UploadedAt time.Time
}

// KindForPath infers the document kind from a normalised path.
func KindForPath(path string) DocumentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return DocumentKindImage
	default:
		return DocumentKindPDF
	}
}

// ExtractionMethod records which extraction path produced the text.
type ExtractionMethod string

// Extraction methods.
const (
	ExtractionDirect ExtractionMethod = "direct"
	ExtractionOCR    ExtractionMethod = "ocr"
	ExtractionFailed ExtractionMethod = "failed"
)

// PageText is the text of one page, numbered from 1.
type PageText struct {
	Number int
	Text   string
}

// ExtractedText is the page-tagged text of one document.
// It is produced once per document and discarded after chunking.
type ExtractedText struct {
	// Source is the document name the text came from.
	Source string

	// Method is the path that produced the pages.
	Method ExtractionMethod

	// Pages holds non-empty pages in page order.
	Pages []PageText
}

// PageHeader returns the tag written before every page of text.
func PageHeader(source string, page int) string {
	return fmt.Sprintf("--- PDF: %s | Page: %d ---", source, page)
}

// Text renders all pages with their source and page tags.
func (e ExtractedText) Text() string {
	var b strings.Builder
	for _, p := range e.Pages {
		b.WriteString("\n")
		b.WriteString(PageHeader(e.Source, p.Number))
		b.WriteString("\n")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Empty reports whether the extraction produced no usable text.
func (e ExtractedText) Empty() bool {
	for _, p := range e.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

// Chunk is a contiguous, source-attributed passage of text.
// A chunk never spans two documents.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Source is the name of the document the text came from.
	Source string

	// Position is the ordinal position within the source.
	Position int

	// Content is the passage text.
	Content string

	// Embedding is the vector representation, set at index time.
	Embedding []float32
}
