package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs extraction, chunking and indexing for a batch of documents.
type IngestService struct {
	extractor driving.ExtractorService
	chunker   driving.ChunkerService
	kb        driving.KnowledgeBaseService
}

// NewIngestService creates an ingest service.
func NewIngestService(
	extractor driving.ExtractorService,
	chunker driving.ChunkerService,
	kb driving.KnowledgeBaseService,
) *IngestService {
	return &IngestService{
		extractor: extractor,
		chunker:   chunker,
		kb:        kb,
	}
}

// Ingest adds documents to the knowledge base as one batch.
// The batch is indexed completely or not at all.
func (s *IngestService) Ingest(ctx context.Context, handle domain.KnowledgeBaseHandle, docs []domain.Document) (*driving.IngestReport, error) {
	logger.Section("Ingest")
	report := &driving.IngestReport{
		Documents: len(docs),
		Methods:   make(map[string]domain.ExtractionMethod, len(docs)),
	}
	if len(docs) == 0 {
		return report, fmt.Errorf("ingest: no documents: %w", domain.ErrInvalidInput)
	}

	batch, err := s.extractor.Extract(ctx, docs)
	if batch != nil {
		report.Rejected = batch.Rejected
		report.OCRLoads = batch.OCRLoads
		for _, r := range batch.Rejected {
			report.Methods[r.Name] = domain.ExtractionFailed
		}
		for _, t := range batch.Texts {
			report.Methods[t.Source] = t.Method
		}
	}
	if err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}

	var chunks []domain.Chunk
	var errs []error
	for _, text := range batch.Texts {
		c, err := s.chunker.Chunk(ctx, text.Text(), text.Source)
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk %s: %w", text.Source, err))
			continue
		}
		logger.Debug("%s: %d chunks", text.Source, len(c))
		chunks = append(chunks, c...)
	}
	if err := errors.Join(errs...); err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return report, fmt.Errorf("ingest: %w", domain.ErrNothingToIndex)
	}

	added, err := s.kb.Index(ctx, handle, chunks)
	if err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}
	report.Indexed = added

	logger.Info("ingest: %d documents, %d chunks, %d new, %d rejected",
		len(docs), report.Chunks, added, len(report.Rejected))
	return report, nil
}
