package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SessionManager drives one user's conversation through
// no-session, uploading, processing and chatting.
type SessionManager interface {
	// State returns the current state.
	State() domain.SessionState

	// Current returns a copy of the open session, or nil.
	Current() *domain.Session

	// Identity returns the user the manager serves.
	Identity() domain.Identity

	// NewChat saves the open session, drops its ephemeral knowledge base
	// and opens a fresh session in the uploading state.
	NewChat(ctx context.Context) (*domain.Session, error)

	// Upload validates and stores files for the open session.
	// Rejected files are reported, not returned as errors.
	Upload(ctx context.Context, files []domain.UploadFile) ([]domain.ApprovedFile, []Rejection, error)

	// Process ingests the approved files and moves to chatting.
	// On failure the manager returns to uploading and the error is returned.
	Process(ctx context.Context) (*IngestReport, error)

	// Ask answers a question and appends both turns.
	// On model failure no turn is appended.
	Ask(ctx context.Context, question string) (domain.Answer, error)

	// Load opens a stored session. If its knowledge base is gone the
	// manager moves to uploading and returns a warning instead of failing.
	Load(ctx context.Context, id string) (warning string, err error)

	// Rename sets the title of the open session and saves it.
	Rename(ctx context.Context, title string) error

	// List returns the user's stored sessions, most recent first.
	List(ctx context.Context) ([]domain.SessionSummary, error)

	// Delete removes a stored session. Deleting the open session closes it.
	Delete(ctx context.Context, id string) error

	// Close saves the open session and releases its ephemeral knowledge base.
	Close(ctx context.Context) error
}
