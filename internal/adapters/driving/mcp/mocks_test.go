package mcp

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockSessionManager is a mock implementation of driving.SessionManager.
type mockSessionManager struct {
	state    domain.SessionState
	current  *domain.Session
	identity domain.Identity
	chats    []domain.SessionSummary
	stored   map[string]*domain.Session
	answer   domain.Answer
	report   *driving.IngestReport
	rejected []driving.Rejection
	warning  string
	err      error
	askErr   error

	uploaded []string
	asked    []string
	loaded   []string
}

func (m *mockSessionManager) State() domain.SessionState {
	if m.state == "" {
		return domain.StateNoSession
	}
	return m.state
}

func (m *mockSessionManager) Current() *domain.Session { return m.current }

func (m *mockSessionManager) Identity() domain.Identity { return m.identity }

func (m *mockSessionManager) NewChat(_ context.Context) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.current = &domain.Session{ID: "chat-new"}
	m.state = domain.StateUploading
	return m.current, nil
}

func (m *mockSessionManager) Upload(_ context.Context, files []domain.UploadFile) ([]domain.ApprovedFile, []driving.Rejection, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	var approved []domain.ApprovedFile
	for _, f := range files {
		if _, err := io.ReadAll(f.Content); err != nil {
			return nil, nil, err
		}
		m.uploaded = append(m.uploaded, f.Name)
		approved = append(approved, domain.ApprovedFile{Name: f.Name, Path: "/uploads/" + f.Name})
	}
	m.current.ApprovedFiles = append(m.current.ApprovedFiles, approved...)
	return approved, m.rejected, nil
}

func (m *mockSessionManager) Process(_ context.Context) (*driving.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.state = domain.StateChatting
	return m.report, nil
}

func (m *mockSessionManager) Ask(_ context.Context, question string) (domain.Answer, error) {
	if m.askErr != nil {
		return domain.Answer{}, m.askErr
	}
	m.asked = append(m.asked, question)
	return m.answer, nil
}

func (m *mockSessionManager) Load(_ context.Context, id string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	s, ok := m.stored[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	m.loaded = append(m.loaded, id)
	m.current = s
	m.state = domain.StateChatting
	return m.warning, nil
}

func (m *mockSessionManager) Rename(_ context.Context, title string) error {
	if m.current == nil {
		return domain.ErrNoActiveSession
	}
	m.current.Title = title
	return m.err
}

func (m *mockSessionManager) List(_ context.Context) ([]domain.SessionSummary, error) {
	return m.chats, m.err
}

func (m *mockSessionManager) Delete(_ context.Context, _ string) error { return m.err }

func (m *mockSessionManager) Close(_ context.Context) error { return m.err }

// mockCollectionService is a mock implementation of driving.CollectionService.
type mockCollectionService struct {
	report *driving.IngestReport
	err    error
	added  []string
	by     domain.Identity
}

func (m *mockCollectionService) Add(_ context.Context, identity domain.Identity, files []domain.UploadFile) (*driving.IngestReport, error) {
	m.by = identity
	for _, f := range files {
		m.added = append(m.added, f.Name)
	}
	return m.report, m.err
}

// mockKnowledgeBaseService is a mock implementation of driving.KnowledgeBaseService.
type mockKnowledgeBaseService struct {
	info       domain.KnowledgeBaseInfo
	resolveErr error
}

func (m *mockKnowledgeBaseService) GetOrCreate(_ context.Context, tenant domain.TenantKey) (domain.KnowledgeBaseHandle, error) {
	return domain.KnowledgeBaseHandle{Tenant: tenant}, nil
}

func (m *mockKnowledgeBaseService) Resolve(_ context.Context, ref string) (domain.KnowledgeBaseHandle, error) {
	if m.resolveErr != nil {
		return domain.KnowledgeBaseHandle{}, m.resolveErr
	}
	return m.info.Handle, nil
}

func (m *mockKnowledgeBaseService) Index(_ context.Context, _ domain.KnowledgeBaseHandle, chunks []domain.Chunk) (int, error) {
	return len(chunks), nil
}

func (m *mockKnowledgeBaseService) Destroy(_ context.Context, _ domain.KnowledgeBaseHandle) error {
	return nil
}

func (m *mockKnowledgeBaseService) Info(_ context.Context, _ domain.KnowledgeBaseHandle) (domain.KnowledgeBaseInfo, error) {
	return m.info, nil
}

var alice = domain.Identity{User: "alice@acme.com", Role: domain.RoleUser}

func newTestServer(t *testing.T, m *mockSessionManager, opts ...func(*Ports)) *Server {
	t.Helper()
	ports := &Ports{Session: func(domain.Identity) driving.SessionManager { return m }}
	for _, opt := range opts {
		opt(ports)
	}
	s, err := NewServer(ports, alice)
	require.NoError(t, err)
	return s
}
