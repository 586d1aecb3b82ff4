package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionManager = (*SessionManager)(nil)

// SessionDeps bundles the collaborators of a SessionManager.
type SessionDeps struct {
	Sessions  driven.SessionStore
	Uploader  driven.Uploader
	KB        driving.KnowledgeBaseService
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Answers   driving.AnswerService
}

// SessionConfig holds the tunables of a SessionManager.
type SessionConfig struct {
	// UploadRoot is where normalised uploads are written, per user and session.
	UploadRoot string

	// MaxHistory caps the messages passed to the answer composer.
	MaxHistory int

	// HistoryTurns is the number of recent turns included in prompts.
	HistoryTurns int
}

// SessionManager drives one user's conversations. It is safe for
// concurrent use but serialises operations.
type SessionManager struct {
	identity domain.Identity
	deps     SessionDeps
	cfg      SessionConfig
	now      func() time.Time

	mu      sync.Mutex
	state   domain.SessionState
	current *domain.Session
	handle  domain.KnowledgeBaseHandle
	pending []domain.Document
}

// NewSessionManager creates a manager for identity in the no-session state.
func NewSessionManager(identity domain.Identity, deps SessionDeps, cfg SessionConfig) *SessionManager {
	return &SessionManager{
		identity: identity,
		deps:     deps,
		cfg:      cfg,
		now:      time.Now,
		state:    domain.StateNoSession,
	}
}

// State returns the current state.
func (m *SessionManager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the open session, or nil.
func (m *SessionManager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	s.Messages = append([]domain.Message(nil), m.current.Messages...)
	s.ApprovedFiles = append([]domain.ApprovedFile(nil), m.current.ApprovedFiles...)
	return &s
}

// Identity returns the user the manager serves.
func (m *SessionManager) Identity() domain.Identity {
	return m.identity
}

// Handle returns the knowledge base of the open session.
func (m *SessionManager) Handle() domain.KnowledgeBaseHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// NewChat opens a fresh session.
func (m *SessionManager) NewChat(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.release(ctx); err != nil {
		return nil, err
	}

	session := domain.NewSession(m.identity.User, m.now())
	session.ID = m.uniqueID(ctx, session.ID)

	handle, err := m.deps.KB.GetOrCreate(ctx, m.identity.TenantKey())
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	session.KnowledgeBaseRef = handle.Ref()

	if err := m.deps.Sessions.Save(ctx, session); err != nil {
		m.destroyEphemeral(ctx, handle)
		return nil, fmt.Errorf("session: save: %w", err)
	}

	m.current = session
	m.handle = handle
	m.pending = nil
	m.state = domain.StateUploading
	logger.Info("session: opened %s (%s)", session.ID, handle.Ref())

	c := *session
	return &c, nil
}

// Upload validates and stores files for the open session.
func (m *SessionManager) Upload(ctx context.Context, files []domain.UploadFile) ([]domain.ApprovedFile, []driving.Rejection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, nil, domain.ErrNoActiveSession
	}
	if err := m.transition(domain.StateUploading); err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("upload: no files: %w", domain.ErrInvalidInput)
	}

	limits := m.deps.Uploader.Limits()
	if limits.MaxFiles > 0 && len(files)+len(m.pending) > limits.MaxFiles {
		return nil, nil, fmt.Errorf("upload: at most %d files per batch: %w", limits.MaxFiles, domain.ErrInvalidInput)
	}

	dir := filepath.Join(m.cfg.UploadRoot, domain.SafeName(m.identity.User), m.current.ID)
	var approved []domain.ApprovedFile
	var rejected []driving.Rejection
	for _, f := range files {
		doc, err := m.deps.Uploader.Accept(ctx, f, dir)
		if err != nil {
			logger.Warn("upload: rejected %s: %v", f.Name, err)
			rejected = append(rejected, driving.Rejection{Name: f.Name, Reason: err.Error()})
			continue
		}
		doc.Tenant = m.handle.Tenant.String()
		m.pending = append(m.pending, doc)
		af := domain.ApprovedFile{Name: doc.Name, Path: doc.Path}
		approved = append(approved, af)
		m.current.ApprovedFiles = append(m.current.ApprovedFiles, af)
	}

	m.state = domain.StateUploading
	if len(approved) > 0 {
		m.current.UpdatedAt = m.now()
		if err := m.deps.Sessions.Save(ctx, m.current); err != nil {
			return approved, rejected, fmt.Errorf("upload: save: %w", err)
		}
	}
	return approved, rejected, nil
}

// Process ingests pending uploads and moves to chatting.
func (m *SessionManager) Process(ctx context.Context) (*driving.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, domain.ErrNoActiveSession
	}
	if len(m.pending) == 0 {
		return nil, fmt.Errorf("process: no uploaded files: %w", domain.ErrInvalidInput)
	}
	if err := m.transition(domain.StateProcessing); err != nil {
		return nil, err
	}
	m.state = domain.StateProcessing

	report, err := m.deps.Ingest.Ingest(ctx, m.handle, m.pending)
	if err != nil {
		m.state = domain.StateUploading
		return report, err
	}

	m.pending = nil
	m.state = domain.StateChatting
	m.current.UpdatedAt = m.now()
	if err := m.deps.Sessions.Save(ctx, m.current); err != nil {
		return report, fmt.Errorf("process: save: %w", err)
	}
	return report, nil
}

// Ask answers question from the open session's knowledge base.
func (m *SessionManager) Ask(ctx context.Context, question string) (domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return domain.Answer{}, domain.ErrNoActiveSession
	}
	if m.state != domain.StateChatting {
		return domain.Answer{}, fmt.Errorf("%w: cannot ask while %s", domain.ErrInvalidTransition, m.state)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("ask: empty question: %w", domain.ErrInvalidInput)
	}

	retrieval, err := m.deps.Retrieval.Retrieve(ctx, m.handle, question)
	if err != nil {
		return domain.Answer{}, err
	}

	answer, err := m.deps.Answers.Answer(ctx, retrieval, question, m.current.History(m.historyLimit()))
	if err != nil {
		return domain.Answer{}, err
	}

	now := m.now()
	if m.current.HasDefaultTitle() {
		m.current.Title = domain.TitleFromMessage(question)
	}
	m.current.Append(domain.MessageRoleUser, question, now)
	m.current.Append(domain.MessageRoleAssistant, answer.Text, now)
	if err := m.deps.Sessions.Save(ctx, m.current); err != nil {
		return answer, fmt.Errorf("ask: save: %w", err)
	}
	return answer, nil
}

// Load opens a stored session. The chat being left keeps its knowledge
// base.
func (m *SessionManager) Load(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.deps.Sessions.Load(ctx, m.identity.User, id)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", id, err)
	}
	if m.current != nil && m.current.ID == id {
		return "", nil
	}
	if err := m.detach(ctx); err != nil {
		return "", err
	}

	handle, err := m.deps.KB.Resolve(ctx, session.KnowledgeBaseRef)
	if err == nil {
		session.UpdatedAt = m.now()
		if err := m.deps.Sessions.Save(ctx, session); err != nil {
			return "", fmt.Errorf("load %s: save: %w", id, err)
		}
		m.current = session
		m.handle = handle
		m.pending = nil
		m.state = domain.StateChatting
		logger.Info("session: loaded %s", id)
		return "", nil
	}
	if !isResolutionError(err) {
		return "", fmt.Errorf("load %s: %w", id, err)
	}

	logger.Warn("session: %s lost its knowledge base: %v", id, err)
	handle, err = m.deps.KB.GetOrCreate(ctx, m.identity.TenantKey())
	if err != nil {
		return "", fmt.Errorf("load %s: %w", id, err)
	}
	session.KnowledgeBaseRef = handle.Ref()
	session.UpdatedAt = m.now()

	m.current = session
	m.handle = handle
	m.pending = nil
	m.state = domain.StateUploading
	if err := m.deps.Sessions.Save(ctx, session); err != nil {
		return "", fmt.Errorf("load %s: save: %w", id, err)
	}
	return "The documents for this chat are no longer available. Upload them again to continue.", nil
}

// Rename sets the title of the open session.
func (m *SessionManager) Rename(ctx context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return domain.ErrNoActiveSession
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("rename: empty title: %w", domain.ErrInvalidInput)
	}
	m.current.Title = title
	m.current.UpdatedAt = m.now()
	return m.deps.Sessions.Save(ctx, m.current)
}

// List returns the user's sessions, most recent first.
func (m *SessionManager) List(ctx context.Context) ([]domain.SessionSummary, error) {
	return m.deps.Sessions.List(ctx, m.identity.User)
}

// Delete removes a stored session and its ephemeral knowledge base.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.ID == id {
		if err := m.release(ctx); err != nil {
			return err
		}
		return m.deps.Sessions.Delete(ctx, m.identity.User, id)
	}

	session, err := m.deps.Sessions.Load(ctx, m.identity.User, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if handle, err := m.deps.KB.Resolve(ctx, session.KnowledgeBaseRef); err == nil {
		m.destroyEphemeral(ctx, handle)
	}
	return m.deps.Sessions.Delete(ctx, m.identity.User, id)
}

// Close saves the open session and releases its ephemeral knowledge base.
func (m *SessionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.release(ctx)
}

// release closes the open session and removes its ephemeral knowledge
// base. Caller holds m.mu.
func (m *SessionManager) release(ctx context.Context) error {
	handle := m.handle
	if err := m.detach(ctx); err != nil {
		return err
	}
	m.destroyEphemeral(ctx, handle)
	return nil
}

// detach saves and closes the open session, leaving its knowledge base on
// disk so the chat can be loaded again. Caller holds m.mu.
func (m *SessionManager) detach(ctx context.Context) error {
	if m.current == nil {
		m.state = domain.StateNoSession
		return nil
	}
	m.current.UpdatedAt = m.now()
	if err := m.deps.Sessions.Save(ctx, m.current); err != nil {
		return fmt.Errorf("session: save %s: %w", m.current.ID, err)
	}
	m.current = nil
	m.handle = domain.KnowledgeBaseHandle{}
	m.pending = nil
	m.state = domain.StateNoSession
	return nil
}

func (m *SessionManager) destroyEphemeral(ctx context.Context, handle domain.KnowledgeBaseHandle) {
	if handle.IsZero() || handle.Tenant.IsShared() {
		return
	}
	if err := m.deps.KB.Destroy(ctx, handle); err != nil {
		logger.Warn("session: failed to remove knowledge base %s: %v", handle.Ref(), err)
	}
}

func (m *SessionManager) transition(next domain.SessionState) error {
	if !m.state.CanTransition(next) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, m.state, next)
	}
	return nil
}

// uniqueID suffixes id when a record with that id already exists.
func (m *SessionManager) uniqueID(ctx context.Context, id string) string {
	candidate := id
	for i := 2; ; i++ {
		if _, err := m.deps.Sessions.Load(ctx, m.identity.User, candidate); errors.Is(err, domain.ErrNotFound) {
			return candidate
		} else if err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", id, i)
	}
}

func (m *SessionManager) historyLimit() int {
	n := m.cfg.HistoryTurns * 2
	if m.cfg.MaxHistory > 0 && (n <= 0 || n > m.cfg.MaxHistory) {
		n = m.cfg.MaxHistory
	}
	return n
}
