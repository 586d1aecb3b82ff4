// Package ocr drives external OCR tooling.
//
// Pages are rendered to PNG with poppler's pdftoppm and recognised with the
// tesseract command line. Both binaries are located on PATH unless configured
// explicitly. The engine is constructed lazily by the model registry so a
// batch that never needs OCR never checks for it.
package ocr
