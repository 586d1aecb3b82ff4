package httpapi

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// fakeIdentity admits users of example.com; admins belong to "acme".
type fakeIdentity struct{}

func (fakeIdentity) Resolve(email string, role domain.Role) (domain.Identity, error) {
	if !strings.HasSuffix(email, "@example.com") {
		return domain.Identity{}, fmt.Errorf("identity: %s belongs to no organization: %w", email, domain.ErrInvalidInput)
	}
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Identity{User: email, Role: role, Organization: "acme"}, nil
}

// fakeSessions is a SessionManager over in-memory chats.
type fakeSessions struct {
	identity domain.Identity
	chats    map[string]*domain.Session
	order    []string
	current  *domain.Session
	state    domain.SessionState
	uploads  map[string]string
	next     int

	answer     domain.Answer
	askErr     error
	processErr error
}

func newFakeSessions(id domain.Identity) *fakeSessions {
	return &fakeSessions{
		identity: id,
		chats:    make(map[string]*domain.Session),
		uploads:  make(map[string]string),
		state:    domain.StateNoSession,
		answer:   domain.Answer{Text: "25 days.", Sources: []string{"handbook.pdf"}, Grounded: true},
	}
}

func (f *fakeSessions) add(id, title string) {
	f.chats[id] = &domain.Session{ID: id, Title: title}
	f.order = append([]string{id}, f.order...)
}

func (f *fakeSessions) State() domain.SessionState { return f.state }

func (f *fakeSessions) Current() *domain.Session { return f.current }

func (f *fakeSessions) Identity() domain.Identity { return f.identity }

func (f *fakeSessions) NewChat(_ context.Context) (*domain.Session, error) {
	f.next++
	id := fmt.Sprintf("chat-%d", f.next)
	f.add(id, "")
	f.current = f.chats[id]
	f.state = domain.StateUploading
	return f.current, nil
}

func (f *fakeSessions) Upload(_ context.Context, files []domain.UploadFile) ([]domain.ApprovedFile, []driving.Rejection, error) {
	if f.current == nil {
		return nil, nil, domain.ErrNoActiveSession
	}
	var approved []domain.ApprovedFile
	var rejected []driving.Rejection
	for _, file := range files {
		data, err := io.ReadAll(file.Content)
		if err != nil {
			return nil, nil, err
		}
		if strings.HasSuffix(file.Name, ".txt") {
			rejected = append(rejected, driving.Rejection{Name: file.Name, Reason: "unsupported file type"})
			continue
		}
		f.uploads[file.Name] = string(data)
		a := domain.ApprovedFile{Name: file.Name, Path: "/uploads/" + file.Name}
		approved = append(approved, a)
		f.current.ApprovedFiles = append(f.current.ApprovedFiles, a)
	}
	return approved, rejected, nil
}

func (f *fakeSessions) Process(_ context.Context) (*driving.IngestReport, error) {
	if f.processErr != nil {
		return &driving.IngestReport{}, f.processErr
	}
	f.state = domain.StateChatting
	report := &driving.IngestReport{Methods: map[string]domain.ExtractionMethod{}}
	for _, a := range f.current.ApprovedFiles {
		report.Documents++
		report.Indexed += 3
		report.Methods[a.Name] = domain.ExtractionDirect
	}
	return report, nil
}

func (f *fakeSessions) Ask(_ context.Context, question string) (domain.Answer, error) {
	if f.current == nil {
		return domain.Answer{}, domain.ErrNoActiveSession
	}
	if f.askErr != nil {
		return domain.Answer{}, f.askErr
	}
	f.current.Messages = append(f.current.Messages,
		domain.Message{Role: domain.MessageRoleUser, Content: question},
		domain.Message{Role: domain.MessageRoleAssistant, Content: f.answer.Text},
	)
	return f.answer, nil
}

func (f *fakeSessions) Load(_ context.Context, id string) (string, error) {
	s, ok := f.chats[id]
	if !ok {
		return "", fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	f.current = s
	f.state = domain.StateChatting
	return "", nil
}

func (f *fakeSessions) Rename(_ context.Context, title string) error {
	if f.current == nil {
		return domain.ErrNoActiveSession
	}
	f.current.Title = title
	return nil
}

func (f *fakeSessions) List(_ context.Context) ([]domain.SessionSummary, error) {
	out := make([]domain.SessionSummary, 0, len(f.order))
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	for _, id := range f.order {
		s := f.chats[id]
		out = append(out, domain.SessionSummary{ID: id, Title: s.DisplayTitle(), UpdatedAt: at, Messages: len(s.Messages)})
	}
	return out, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	if _, ok := f.chats[id]; !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	delete(f.chats, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	if f.current != nil && f.current.ID == id {
		f.current = nil
		f.state = domain.StateNoSession
	}
	return nil
}

func (f *fakeSessions) Close(_ context.Context) error { return nil }

// fakeCollections records shared ingestion.
type fakeCollections struct {
	added []string
	err   error
}

func (f *fakeCollections) Add(_ context.Context, _ domain.Identity, files []domain.UploadFile) (*driving.IngestReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, file := range files {
		f.added = append(f.added, file.Name)
	}
	return &driving.IngestReport{Documents: len(files), Indexed: 5 * len(files)}, nil
}
