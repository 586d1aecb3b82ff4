package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driving.ExtractorService = (*Extractor)(nil)

// Extractor turns documents into text, falling back to OCR when the
// embedded text layer is missing or unreadable.
type Extractor struct {
	textLayer  driven.TextLayerReader
	rasterizer driven.Rasterizer
	dictionary driven.Dictionary
	models     *ModelRegistry

	minTextLength   int
	maxUnknownRatio float64
	dpi             int
	workDir         string
}

// ExtractorConfig tunes the quality gate and OCR.
type ExtractorConfig struct {
	Thresholds domain.Thresholds
	DPI        int

	// WorkDir holds rasterized pages while a document is OCRed.
	// Defaults to the system temp directory.
	WorkDir string
}

// NewExtractor creates an extractor. The rasterizer and models may be nil,
// in which case documents failing the quality gate are rejected.
func NewExtractor(
	textLayer driven.TextLayerReader,
	rasterizer driven.Rasterizer,
	dictionary driven.Dictionary,
	models *ModelRegistry,
	cfg ExtractorConfig,
) *Extractor {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 300
	}
	return &Extractor{
		textLayer:       textLayer,
		rasterizer:      rasterizer,
		dictionary:      dictionary,
		models:          models,
		minTextLength:   cfg.Thresholds.MinTextLength,
		maxUnknownRatio: cfg.Thresholds.MaxUnknownRatio,
		dpi:             dpi,
		workDir:         cfg.WorkDir,
	}
}

// Extract processes documents in submission order.
func (e *Extractor) Extract(ctx context.Context, docs []domain.Document) (*driving.ExtractionBatch, error) {
	logger.Section("Extract")

	batch := &driving.ExtractionBatch{}
	loadsBefore := e.ocrLoads()

	for i, doc := range docs {
		logger.Info("Processing %d/%d: %s", i+1, len(docs), doc.Name)

		text, err := e.extractOne(ctx, doc)
		if err != nil {
			logger.Warn("%v", err)
			batch.Rejected = append(batch.Rejected, driving.Rejection{Name: doc.Name, Reason: err.Error()})
			continue
		}
		batch.Texts = append(batch.Texts, text)
	}

	batch.OCRLoads = e.ocrLoads() - loadsBefore

	if len(batch.Texts) == 0 {
		return batch, domain.ErrEmptyCorpus
	}
	return batch, nil
}

// extractOne never aborts on a bad document; any failure becomes an ExtractionError.
func (e *Extractor) extractOne(ctx context.Context, doc domain.Document) (domain.ExtractedText, error) {
	if doc.Kind == domain.DocumentKindImage {
		return e.ocr(ctx, doc)
	}

	pages, err := e.textLayer.ReadPages(ctx, doc.Path)
	if err != nil {
		logger.Warn("%s: text layer unreadable: %v", doc.Name, err)
	} else {
		direct := domain.ExtractedText{Source: doc.Name, Method: domain.ExtractionDirect, Pages: nonEmpty(pages)}
		ok, reason := e.QualityCheck(joinPages(direct.Pages))
		if ok {
			logger.Debug("%s: direct extraction accepted (%d pages)", doc.Name, len(direct.Pages))
			return direct, nil
		}
		logger.Info("%s: direct extraction rejected (%s), falling back to OCR", doc.Name, reason)
	}

	return e.ocr(ctx, doc)
}

func (e *Extractor) ocr(ctx context.Context, doc domain.Document) (domain.ExtractedText, error) {
	fail := func(err error) (domain.ExtractedText, error) {
		return domain.ExtractedText{Source: doc.Name, Method: domain.ExtractionFailed},
			&domain.ExtractionError{Source: doc.Name, Err: err}
	}

	if e.models == nil {
		return fail(domain.ErrOCRUnavailable)
	}
	engine, err := e.models.OCR(ctx)
	if err != nil {
		return fail(err)
	}

	images := []string{doc.Path}
	if doc.Kind != domain.DocumentKindImage {
		if e.rasterizer == nil {
			return fail(fmt.Errorf("%w: no rasterizer configured", domain.ErrOCRUnavailable))
		}
		dir, err := os.MkdirTemp(e.workDir, "docqa-ocr-*")
		if err != nil {
			return fail(fmt.Errorf("create work dir: %w", err))
		}
		defer os.RemoveAll(dir)

		images, err = e.rasterizer.Rasterize(ctx, doc.Path, e.dpi, dir)
		if err != nil {
			return fail(fmt.Errorf("rasterize: %w", err))
		}
		if len(images) == 0 {
			return fail(errors.New("document has no pages"))
		}
	}

	texts, err := engine.Recognize(ctx, images)
	if err != nil {
		return fail(&domain.ModelError{Model: engine.Name(), Op: "ocr", Err: err})
	}

	result := domain.ExtractedText{Source: doc.Name, Method: domain.ExtractionOCR}
	for i, t := range texts {
		result.Pages = append(result.Pages, domain.PageText{Number: i + 1, Text: strings.TrimSpace(t)})
	}
	result.Pages = nonEmpty(result.Pages)
	if result.Empty() {
		return fail(fmt.Errorf("OCR found no text in %d page(s)", len(images)))
	}

	logger.Debug("%s: OCR extracted %d pages", doc.Name, len(result.Pages))
	return result, nil
}

// QualityCheck decides whether directly extracted text is usable.
// Text is rejected when it is shorter than the minimum length or when too
// many of its words are not in the dictionary.
func (e *Extractor) QualityCheck(text string) (bool, string) {
	length := len([]rune(strings.TrimSpace(text)))
	if length < e.minTextLength {
		return false, fmt.Sprintf("%d characters, need %d", length, e.minTextLength)
	}
	if e.dictionary == nil {
		return true, ""
	}
	ratio := UnknownRatio(text, e.dictionary)
	if ratio > e.maxUnknownRatio {
		return false, fmt.Sprintf("%.0f%% unrecognised words", ratio*100)
	}
	return true, ""
}

func (e *Extractor) ocrLoads() int {
	if e.models == nil {
		return 0
	}
	return e.models.Loads(ModelOCR)
}

// UnknownRatio returns the share of word tokens the dictionary does not know.
// Tokens without letters are ignored. Text with no word tokens scores 1.
func UnknownRatio(text string, dict driven.Dictionary) float64 {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	var words, unknown int
	for _, tok := range tokens {
		tok = strings.ToLower(strings.Trim(tok, "'"))
		if !hasLetter(tok) {
			continue
		}
		words++
		if !knownWord(tok, dict) {
			unknown++
		}
	}
	if words == 0 {
		return 1
	}
	return float64(unknown) / float64(words)
}

// knownWord accepts dictionary words and their common inflections.
func knownWord(w string, dict driven.Dictionary) bool {
	if dict.Contains(w) {
		return true
	}
	w = strings.TrimSuffix(w, "'s")
	if dict.Contains(w) {
		return true
	}
	for _, suffix := range []string{"s", "es", "ed", "d", "ing", "ly", "er", "est"} {
		if stem, ok := strings.CutSuffix(w, suffix); ok && len(stem) > 1 && dict.Contains(stem) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func nonEmpty(pages []domain.PageText) []domain.PageText {
	out := make([]domain.PageText, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinPages(pages []domain.PageText) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n")
}
