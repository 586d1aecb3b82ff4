// Package pdf reads the embedded text layer of PDF files.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure TextLayer implements the interface.
var _ driven.TextLayerReader = (*TextLayer)(nil)

// DefaultPdftotext is the poppler text extractor used as a fallback.
const DefaultPdftotext = "pdftotext"

// TextLayer extracts page text with the pure Go PDF reader, optionally
// falling back to pdftotext when the file cannot be parsed.
type TextLayer struct {
	pdftotext string
}

// Option configures a TextLayer.
type Option func(*TextLayer)

// WithPdftotext enables the pdftotext fallback using the given binary.
func WithPdftotext(bin string) Option {
	return func(t *TextLayer) {
		t.pdftotext = bin
	}
}

// New creates a text layer reader.
func New(opts ...Option) *TextLayer {
	t := &TextLayer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReadPages returns the text of every page, numbered from 1.
func (t *TextLayer) ReadPages(ctx context.Context, path string) ([]domain.PageText, error) {
	pages, err := readPages(path)
	if err == nil {
		return pages, nil
	}
	if t.pdftotext == "" {
		return nil, err
	}
	logger.Debug("pdf: %s: %v, trying %s", path, err, t.pdftotext)
	return t.readWithPdftotext(ctx, path)
}

// PageCount returns the number of pages.
func (t *TextLayer) PageCount(path string) (n int, err error) {
	defer recoverParse(path, &err)

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

func readPages(path string) (pages []domain.PageText, err error) {
	defer recoverParse(path, &err)

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer f.Close()

	n := reader.NumPage()
	pages = make([]domain.PageText, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		pt := domain.PageText{Number: i}
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				logger.Debug("pdf: %s page %d: %v", path, i, err)
			} else {
				pt.Text = text
			}
		}
		pages = append(pages, pt)
	}
	return pages, nil
}

func (t *TextLayer) readWithPdftotext(ctx context.Context, path string) ([]domain.PageText, error) {
	out, err := exec.CommandContext(ctx, t.pdftotext, "-layout", path, "-").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("pdftotext: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return SplitFormFeeds(string(out)), nil
}

// SplitFormFeeds splits pdftotext output into pages.
func SplitFormFeeds(text string) []domain.PageText {
	parts := strings.Split(text, "\f")
	// pdftotext terminates the last page with a form feed
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]domain.PageText, len(parts))
	for i, p := range parts {
		pages[i] = domain.PageText{Number: i + 1, Text: p}
	}
	return pages
}

// recoverParse turns a parser panic on malformed input into an error.
func recoverParse(path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf: malformed file %s: %v", path, r)
	}
}
