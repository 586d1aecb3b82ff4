package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Rasterizer implements the interface.
var _ driven.Rasterizer = (*Rasterizer)(nil)

// DefaultRasterizer is the pdftoppm binary name.
const DefaultRasterizer = "pdftoppm"

const pagePrefix = "page"

// Rasterizer renders PDF pages to PNG images with pdftoppm.
type Rasterizer struct {
	bin string
}

// NewRasterizer creates a rasterizer. An empty bin uses pdftoppm from PATH.
func NewRasterizer(bin string) *Rasterizer {
	if bin == "" {
		bin = DefaultRasterizer
	}
	return &Rasterizer{bin: bin}
}

// Rasterize renders every page of pdfPath into outDir.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath string, dpi int, outDir string) ([]string, error) {
	if dpi <= 0 {
		dpi = 300
	}
	cmd := exec.CommandContext(ctx, r.bin, "-r", strconv.Itoa(dpi), "-png", pdfPath, filepath.Join(outDir, pagePrefix))
	if err := run(cmd); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(r.bin), err)
	}
	return pageImages(outDir)
}

// pageImages lists page-N.png files in page order. pdftoppm zero-pads N to
// the width of the page count, so the number is parsed rather than sorted as text.
func pageImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading rendered pages: %w", err)
	}

	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, pagePrefix+"-") || filepath.Ext(name) != ".png" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pagePrefix+"-"), ".png"))
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

// run executes cmd and folds stderr into the error.
func run(cmd *exec.Cmd) error {
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return err
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
