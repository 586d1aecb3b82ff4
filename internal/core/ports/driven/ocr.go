package driven

import "context"

// Rasterizer renders PDF pages to images for OCR.
type Rasterizer interface {
	// Rasterize renders every page of pdfPath at dpi into outDir and
	// returns the image paths in page order.
	Rasterize(ctx context.Context, pdfPath string, dpi int, outDir string) ([]string, error)
}

// OCREngine recognises text in page images.
// Engines are expensive to load and are shared read-only once loaded.
type OCREngine interface {
	// Recognize returns the text of each image, in image order.
	Recognize(ctx context.Context, imagePaths []string) ([]string, error)

	// Name identifies the engine and its language data.
	Name() string

	// Close releases resources.
	Close() error
}
