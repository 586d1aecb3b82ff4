package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SessionStore persists conversation records, one record per session.
// Save rewrites the whole record.
type SessionStore interface {
	// Save writes the session, creating or replacing its record.
	Save(ctx context.Context, session *domain.Session) error

	// Load reads a session owned by owner.
	// Returns domain.ErrNotFound if the record does not exist.
	Load(ctx context.Context, owner, id string) (*domain.Session, error)

	// List returns the owner's sessions, most recent first.
	List(ctx context.Context, owner string) ([]domain.SessionSummary, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, owner, id string) error
}
