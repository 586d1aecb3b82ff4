package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Tesseract implements the interface.
var _ driven.OCREngine = (*Tesseract)(nil)

// DefaultEngine is the tesseract binary name.
const DefaultEngine = "tesseract"

// Tesseract recognises text with the tesseract command line.
type Tesseract struct {
	bin      string
	language string
}

// NewTesseract locates the binary and checks the language data is installed.
func NewTesseract(ctx context.Context, bin, language string) (*Tesseract, error) {
	if bin == "" {
		bin = DefaultEngine
	}
	if language == "" {
		language = "eng"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}

	langs, err := listLanguages(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	for _, l := range strings.Split(language, "+") {
		if !slices.Contains(langs, l) {
			return nil, fmt.Errorf("tesseract: language %q not installed (have %s)", l, strings.Join(langs, ", "))
		}
	}

	logger.Debug("tesseract: using %s with %s", path, language)
	return &Tesseract{bin: path, language: language}, nil
}

// Recognize runs tesseract on each image in order.
func (t *Tesseract) Recognize(ctx context.Context, imagePaths []string) ([]string, error) {
	out := make([]string, 0, len(imagePaths))
	for i, img := range imagePaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var stdout bytes.Buffer
		cmd := exec.CommandContext(ctx, t.bin, img, "stdout", "-l", t.language)
		cmd.Stdout = &stdout
		if err := run(cmd); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, stdout.String())
	}
	return out, nil
}

// Name returns the engine and language.
func (t *Tesseract) Name() string {
	return DefaultEngine + ":" + t.language
}

// Close is a no-op; each recognition is a separate process.
func (t *Tesseract) Close() error {
	return nil
}

// listLanguages parses the output of `tesseract --list-langs`.
func listLanguages(ctx context.Context, bin string) ([]string, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--list-langs")
	cmd.Stdout = &stdout
	if err := run(cmd); err != nil {
		return nil, err
	}
	var langs []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of available languages") {
			continue
		}
		langs = append(langs, line)
	}
	return langs, nil
}
