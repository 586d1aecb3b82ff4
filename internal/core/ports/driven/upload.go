package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Uploader validates raw files and normalises them for extraction.
type Uploader interface {
	// Accept validates and converts one file into tenantDir.
	// A rejected file returns an error whose message is the reason.
	Accept(ctx context.Context, file domain.UploadFile, tenantDir string) (domain.Document, error)

	// Limits returns the validation limits in force.
	Limits() domain.UploadLimits
}

// OrganizationDirectory maps users to organizations.
type OrganizationDirectory interface {
	// Lookup returns the organization an email belongs to.
	Lookup(email string) (domain.Organization, bool)

	// List returns all organizations.
	List() []domain.Organization
}
