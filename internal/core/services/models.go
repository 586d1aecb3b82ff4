package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Model names tracked by the registry.
const (
	ModelOCR      = "ocr"
	ModelReranker = "reranker"
)

// OCRLoader starts an OCR engine.
type OCRLoader func(ctx context.Context) (driven.OCREngine, error)

// RerankerLoader starts a reranker.
type RerankerLoader func(ctx context.Context) (driven.Reranker, error)

// ModelRegistry owns the process-wide OCR engine and reranker.
// Each model is loaded on first use; concurrent first callers share a
// single load and every later caller reuses the loaded instance.
type ModelRegistry struct {
	group singleflight.Group

	mu       sync.RWMutex
	ocr      driven.OCREngine
	reranker driven.Reranker
	loads    map[string]int

	ocrLoader      OCRLoader
	rerankerLoader RerankerLoader
}

// NewModelRegistry creates a registry. Either loader may be nil, in which
// case asking for that model returns an error.
func NewModelRegistry(ocr OCRLoader, reranker RerankerLoader) *ModelRegistry {
	return &ModelRegistry{
		ocrLoader:      ocr,
		rerankerLoader: reranker,
		loads:          make(map[string]int),
	}
}

// OCR returns the OCR engine, loading it if needed.
func (r *ModelRegistry) OCR(ctx context.Context) (driven.OCREngine, error) {
	r.mu.RLock()
	engine := r.ocr
	r.mu.RUnlock()
	if engine != nil {
		return engine, nil
	}
	if r.ocrLoader == nil {
		return nil, domain.ErrOCRUnavailable
	}

	// The shared load outlives the caller that started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(ModelOCR, func() (any, error) {
		r.mu.RLock()
		loaded := r.ocr
		r.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		logger.Info("Loading OCR engine")
		e, err := r.ocrLoader(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrOCRUnavailable, err)
		}
		r.mu.Lock()
		r.ocr = e
		r.loads[ModelOCR]++
		r.mu.Unlock()
		logger.Info("OCR engine %s ready", e.Name())
		return e, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(driven.OCREngine), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reranker returns the reranker, loading it if needed.
func (r *ModelRegistry) Reranker(ctx context.Context) (driven.Reranker, error) {
	r.mu.RLock()
	rr := r.reranker
	r.mu.RUnlock()
	if rr != nil {
		return rr, nil
	}
	if r.rerankerLoader == nil {
		return nil, domain.ErrRerankerUnavailable
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(ModelReranker, func() (any, error) {
		r.mu.RLock()
		loaded := r.reranker
		r.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		logger.Info("Loading reranker")
		m, err := r.rerankerLoader(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRerankerUnavailable, err)
		}
		r.mu.Lock()
		r.reranker = m
		r.loads[ModelReranker]++
		r.mu.Unlock()
		logger.Info("Reranker %s ready", m.ModelName())
		return m, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(driven.Reranker), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loads returns how many times the named model has been loaded.
func (r *ModelRegistry) Loads(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loads[name]
}

// Close releases loaded models. They are reloaded on next use.
func (r *ModelRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.ocr != nil {
		errs = append(errs, r.ocr.Close())
		r.ocr = nil
	}
	if r.reranker != nil {
		errs = append(errs, r.reranker.Close())
		r.reranker = nil
	}
	return errors.Join(errs...)
}
