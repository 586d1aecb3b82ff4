package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// CollectionService adds documents straight to shared knowledge bases.
type CollectionService struct {
	uploader   driven.Uploader
	kb         driving.KnowledgeBaseService
	ingest     driving.IngestService
	uploadRoot string
	now        func() time.Time
}

// NewCollectionService creates a collection service writing accepted
// uploads under uploadRoot.
func NewCollectionService(
	uploader driven.Uploader,
	kb driving.KnowledgeBaseService,
	ingest driving.IngestService,
	uploadRoot string,
) *CollectionService {
	return &CollectionService{
		uploader:   uploader,
		kb:         kb,
		ingest:     ingest,
		uploadRoot: uploadRoot,
		now:        time.Now,
	}
}

// Add validates files and ingests the accepted ones into the identity's
// shared knowledge base. Rejected files are listed in the report.
func (s *CollectionService) Add(ctx context.Context, identity domain.Identity, files []domain.UploadFile) (*driving.IngestReport, error) {
	tenant := identity.TenantKey()
	if !tenant.IsShared() {
		return nil, fmt.Errorf("collection: %s is not an organization admin: %w", identity.User, domain.ErrInvalidInput)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("collection: no files: %w", domain.ErrInvalidInput)
	}
	limits := s.uploader.Limits()
	if limits.MaxFiles > 0 && len(files) > limits.MaxFiles {
		return nil, fmt.Errorf("collection: at most %d files per batch: %w", limits.MaxFiles, domain.ErrInvalidInput)
	}

	handle, err := s.kb.GetOrCreate(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("collection: %w", err)
	}

	dir := filepath.Join(s.uploadRoot, "shared", domain.SafeName(tenant.Name), s.now().UTC().Format("20060102_150405"))
	var docs []domain.Document
	var rejected []driving.Rejection
	for _, f := range files {
		doc, err := s.uploader.Accept(ctx, f, dir)
		if err != nil {
			logger.Warn("collection: rejected %s: %v", f.Name, err)
			rejected = append(rejected, driving.Rejection{Name: f.Name, Reason: err.Error()})
			continue
		}
		doc.Tenant = tenant.String()
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return &driving.IngestReport{Documents: len(files), Rejected: rejected},
			fmt.Errorf("collection: every file was rejected: %w", domain.ErrInvalidInput)
	}

	report, err := s.ingest.Ingest(ctx, handle, docs)
	if report != nil {
		report.Rejected = append(rejected, report.Rejected...)
	}
	if err != nil {
		return report, err
	}
	logger.Info("collection: %s gained %d chunks from %d documents", tenant, report.Indexed, len(docs))
	return report, nil
}
