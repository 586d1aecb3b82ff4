package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// KnowledgeBaseService manages the lifecycle of per-tenant knowledge bases.
type KnowledgeBaseService interface {
	// GetOrCreate returns the shared knowledge base of an organization,
	// creating and seeding it if absent. Ephemeral tenants always get a
	// fresh knowledge base.
	GetOrCreate(ctx context.Context, tenant domain.TenantKey) (domain.KnowledgeBaseHandle, error)

	// Resolve reconstructs a handle from a persisted reference.
	// Returns domain.ErrSessionResolution if the index no longer exists.
	Resolve(ctx context.Context, ref string) (domain.KnowledgeBaseHandle, error)

	// Index embeds and appends chunks. Calls are serialised per tenant and
	// a batch is stored completely or not at all. Returns the number of
	// chunks newly stored.
	Index(ctx context.Context, handle domain.KnowledgeBaseHandle, chunks []domain.Chunk) (int, error)

	// Destroy removes the knowledge base from disk.
	Destroy(ctx context.Context, handle domain.KnowledgeBaseHandle) error

	// Info summarises the knowledge base.
	Info(ctx context.Context, handle domain.KnowledgeBaseHandle) (domain.KnowledgeBaseInfo, error)
}

// IngestService runs the write path: extract, chunk, index.
type IngestService interface {
	// Ingest adds documents to the knowledge base.
	Ingest(ctx context.Context, handle domain.KnowledgeBaseHandle, docs []domain.Document) (*IngestReport, error)
}

// IngestReport summarises one ingestion batch.
type IngestReport struct {
	Documents int
	Chunks    int
	Indexed   int
	Methods   map[string]domain.ExtractionMethod
	Rejected  []Rejection
	OCRLoads  int
}

// CollectionService grows an organization's shared knowledge base outside
// of any chat session.
type CollectionService interface {
	// Add validates files and ingests the accepted ones as one batch.
	// Only organization admins may add documents.
	Add(ctx context.Context, identity domain.Identity, files []domain.UploadFile) (*IngestReport, error)
}
