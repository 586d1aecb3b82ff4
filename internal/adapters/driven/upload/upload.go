// Package upload validates raw uploads and normalises them into files the
// extractor reads: PDFs are stored as-is, Word documents are converted to
// PDF with LibreOffice and images are stored as single-page OCR inputs.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fumiama/go-docx"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// DefaultConverter is the office suite used for Word conversion.
const DefaultConverter = "libreoffice"

// PageCounter reports the number of pages in a PDF.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// Uploader validates and stores uploads.
type Uploader struct {
	limits    domain.UploadLimits
	pages     PageCounter
	converter string
	now       func() time.Time
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithConverter sets the LibreOffice executable.
func WithConverter(bin string) Option {
	return func(u *Uploader) {
		u.converter = bin
	}
}

// New returns an uploader enforcing limits. pages counts PDF pages.
func New(limits domain.UploadLimits, pages PageCounter, opts ...Option) *Uploader {
	u := &Uploader{
		limits:    limits,
		pages:     pages,
		converter: DefaultConverter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Limits returns the validation limits in force.
func (u *Uploader) Limits() domain.UploadLimits {
	return u.limits
}

// Accept validates file and stores its normalised form in tenantDir. The
// error of a rejected file is the reason shown to the user.
func (u *Uploader) Accept(ctx context.Context, file domain.UploadFile, tenantDir string) (domain.Document, error) {
	name := domain.SafeName(file.Name)
	if name == "" {
		return domain.Document{}, errors.New("invalid file name")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !u.limits.Allows(ext) {
		return domain.Document{}, errors.New("unsupported file type")
	}

	maxBytes := int64(u.limits.MaxFileSizeMB) << 20
	if maxBytes > 0 && file.Size > maxBytes {
		return domain.Document{}, fmt.Errorf("larger than %dMB", u.limits.MaxFileSizeMB)
	}

	if err := os.MkdirAll(tenantDir, 0700); err != nil {
		return domain.Document{}, fmt.Errorf("failed to save file: %w", err)
	}
	saved := filepath.Join(tenantDir, name)
	if err := save(saved, file.Content, maxBytes); err != nil {
		if errors.Is(err, errTooLarge) {
			return domain.Document{}, fmt.Errorf("larger than %dMB", u.limits.MaxFileSizeMB)
		}
		return domain.Document{}, fmt.Errorf("failed to save file: %w", err)
	}

	path, err := u.normalise(ctx, saved, ext)
	if err != nil {
		os.Remove(saved)
		return domain.Document{}, err
	}

	logger.Debug("upload: accepted %s as %s", file.Name, path)
	return domain.Document{
		Name:       file.Name,
		Path:       path,
		Kind:       domain.KindForPath(path),
		UploadedAt: u.now(),
	}, nil
}

// normalise validates length limits and converts Word documents.
func (u *Uploader) normalise(ctx context.Context, saved, ext string) (string, error) {
	switch ext {
	case ".pdf":
		n, err := u.pages.PageCount(saved)
		if err != nil {
			return "", fmt.Errorf("failed to read PDF: %w", err)
		}
		if u.limits.MaxPages > 0 && n > u.limits.MaxPages {
			return "", fmt.Errorf("exceeds %d pages", u.limits.MaxPages)
		}
		return saved, nil

	case ".docx":
		n, err := countParagraphs(saved)
		if err != nil {
			return "", fmt.Errorf("failed to read Word document: %w", err)
		}
		if u.limits.MaxPages > 0 && n > u.limits.MaxPages {
			return "", fmt.Errorf("exceeds %d paragraphs", u.limits.MaxPages)
		}
		return u.convert(ctx, saved)

	case ".doc":
		return u.convert(ctx, saved)

	case ".png", ".jpg", ".jpeg":
		return saved, nil

	default:
		return "", fmt.Errorf("unsupported file type for conversion: %s", ext)
	}
}

// convert runs LibreOffice headless and returns the PDF path.
func (u *Uploader) convert(ctx context.Context, src string) (string, error) {
	if _, err := exec.LookPath(u.converter); err != nil {
		return "", fmt.Errorf("LibreOffice not found (%s)", u.converter)
	}

	outDir := filepath.Dir(src)
	pdfPath := strings.TrimSuffix(src, filepath.Ext(src)) + ".pdf"
	os.Remove(pdfPath)

	cmd := exec.CommandContext(ctx, u.converter, "--headless", "--convert-to", "pdf", "--outdir", outDir, src)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("LibreOffice conversion failed: %s", firstLine(stderr.String(), err))
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("LibreOffice conversion failed: output PDF not found")
	}
	return pdfPath, nil
}

var errTooLarge = errors.New("file too large")

// save copies r to path, failing once more than limit bytes are read.
func save(path string, r io.Reader, limit int64) error {
	if r == nil {
		return errors.New("no content")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit > 0 && n > limit {
		err = errTooLarge
	}
	if err != nil {
		os.Remove(path)
	}
	return err
}

// countParagraphs returns the number of body paragraphs of a .docx file.
func countParagraphs(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return 0, err
	}

	n := 0
	for _, item := range doc.Document.Body.Items {
		if _, ok := item.(*docx.Paragraph); ok {
			n++
		}
	}
	return n, nil
}

func firstLine(stderr string, err error) string {
	if line, _, _ := strings.Cut(strings.TrimSpace(stderr), "\n"); line != "" {
		return line
	}
	return err.Error()
}
