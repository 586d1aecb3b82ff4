package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// chatStore holds the chats shared by every session manager of a test.
type chatStore struct {
	chats    map[string]*domain.Session
	order    []string
	released []string
	answer   domain.Answer
	askErr   error
	report   *driving.IngestReport
	next     int
}

func newChatStore() *chatStore {
	return &chatStore{chats: map[string]*domain.Session{}}
}

func (s *chatStore) add(sess *domain.Session) {
	s.chats[sess.ID] = sess
	s.order = append([]string{sess.ID}, s.order...)
}

// fakeSession is a driving.SessionManager backed by a chatStore.
type fakeSession struct {
	store    *chatStore
	identity domain.Identity
	current  *domain.Session
	state    domain.SessionState
}

func (f *fakeSession) State() domain.SessionState {
	if f.state == "" {
		return domain.StateNoSession
	}
	return f.state
}

func (f *fakeSession) Current() *domain.Session { return f.current }

func (f *fakeSession) Identity() domain.Identity { return f.identity }

func (f *fakeSession) NewChat(_ context.Context) (*domain.Session, error) {
	if f.current != nil {
		f.store.released = append(f.store.released, f.current.ID)
	}
	f.store.next++
	sess := &domain.Session{ID: fmt.Sprintf("chat-%d", f.store.next), KnowledgeBaseRef: "users/alice/kb"}
	f.store.add(sess)
	f.current = sess
	f.state = domain.StateUploading
	return sess, nil
}

func (f *fakeSession) Upload(_ context.Context, files []domain.UploadFile) ([]domain.ApprovedFile, []driving.Rejection, error) {
	if f.current == nil {
		return nil, nil, domain.ErrNoActiveSession
	}
	var (
		approved []domain.ApprovedFile
		rejected []driving.Rejection
	)
	for _, file := range files {
		if _, err := io.ReadAll(file.Content); err != nil {
			return nil, nil, err
		}
		if strings.HasSuffix(file.Name, ".txt") {
			rejected = append(rejected, driving.Rejection{Name: file.Name, Reason: "unsupported file type"})
			continue
		}
		approved = append(approved, domain.ApprovedFile{Name: file.Name, Path: "/uploads/" + file.Name})
	}
	f.current.ApprovedFiles = append(f.current.ApprovedFiles, approved...)
	return approved, rejected, nil
}

func (f *fakeSession) Process(_ context.Context) (*driving.IngestReport, error) {
	f.state = domain.StateChatting
	if f.store.report != nil {
		return f.store.report, nil
	}
	methods := map[string]domain.ExtractionMethod{}
	for _, a := range f.current.ApprovedFiles {
		methods[a.Name] = domain.ExtractionDirect
	}
	return &driving.IngestReport{Documents: len(methods), Indexed: 4 * len(methods), Methods: methods}, nil
}

func (f *fakeSession) Ask(_ context.Context, question string) (domain.Answer, error) {
	if f.current == nil {
		return domain.Answer{}, domain.ErrNoActiveSession
	}
	if f.store.askErr != nil {
		return domain.Answer{}, f.store.askErr
	}
	f.current.Messages = append(f.current.Messages,
		domain.Message{Role: domain.MessageRoleUser, Content: question},
		domain.Message{Role: domain.MessageRoleAssistant, Content: f.store.answer.Text})
	return f.store.answer, nil
}

func (f *fakeSession) Load(_ context.Context, id string) (string, error) {
	sess, ok := f.store.chats[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	f.current = sess
	f.state = domain.StateChatting
	return "", nil
}

func (f *fakeSession) Rename(_ context.Context, title string) error {
	if f.current == nil {
		return domain.ErrNoActiveSession
	}
	f.current.Title = title
	return nil
}

func (f *fakeSession) List(_ context.Context) ([]domain.SessionSummary, error) {
	out := make([]domain.SessionSummary, 0, len(f.store.order))
	for _, id := range f.store.order {
		s := f.store.chats[id]
		out = append(out, domain.SessionSummary{
			ID:        s.ID,
			Title:     s.DisplayTitle(),
			UpdatedAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			Messages:  len(s.Messages),
		})
	}
	return out, nil
}

func (f *fakeSession) Delete(_ context.Context, id string) error {
	if _, ok := f.store.chats[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.store.chats, id)
	for i, o := range f.store.order {
		if o == id {
			f.store.order = append(f.store.order[:i], f.store.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSession) Close(_ context.Context) error { return nil }

// fakeIdentity resolves every email into the acme organization.
type fakeIdentity struct{}

func (fakeIdentity) Resolve(email string, role domain.Role) (domain.Identity, error) {
	if email == "" {
		return domain.Identity{}, domain.ErrInvalidInput
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	return domain.Identity{User: email, Role: role, Organization: "acme"}, nil
}

type fakeCollections struct {
	added  []string
	report *driving.IngestReport
	err    error
}

func (f *fakeCollections) Add(_ context.Context, id domain.Identity, files []domain.UploadFile) (*driving.IngestReport, error) {
	if !id.TenantKey().IsShared() {
		return nil, fmt.Errorf("%w: admin role required", domain.ErrInvalidInput)
	}
	for _, file := range files {
		f.added = append(f.added, file.Name)
	}
	return f.report, f.err
}

type fakeKnowledgeBases struct {
	destroyed []string
}

func (f *fakeKnowledgeBases) GetOrCreate(_ context.Context, tenant domain.TenantKey) (domain.KnowledgeBaseHandle, error) {
	return domain.KnowledgeBaseHandle{Tenant: tenant}, nil
}

func (f *fakeKnowledgeBases) Resolve(_ context.Context, ref string) (domain.KnowledgeBaseHandle, error) {
	tenant, id, err := domain.ParseKnowledgeBaseRef(ref)
	if err != nil {
		return domain.KnowledgeBaseHandle{}, domain.ErrSessionResolution
	}
	return domain.KnowledgeBaseHandle{Tenant: tenant, ID: id}, nil
}

func (f *fakeKnowledgeBases) Index(_ context.Context, _ domain.KnowledgeBaseHandle, chunks []domain.Chunk) (int, error) {
	return len(chunks), nil
}

func (f *fakeKnowledgeBases) Destroy(_ context.Context, h domain.KnowledgeBaseHandle) error {
	f.destroyed = append(f.destroyed, h.Ref())
	return nil
}

func (f *fakeKnowledgeBases) Info(_ context.Context, h domain.KnowledgeBaseHandle) (domain.KnowledgeBaseInfo, error) {
	return domain.KnowledgeBaseInfo{Handle: h, ChunkCount: 12, Sources: []string{"handbook.pdf"}, EmbeddingModel: "nomic-embed-text"}, nil
}

// testServices wires fakes into Services.
func testServices(store *chatStore) (*Services, *fakeCollections, *fakeKnowledgeBases) {
	collections := &fakeCollections{report: &driving.IngestReport{Documents: 1, Indexed: 5}}
	kbs := &fakeKnowledgeBases{}
	newSession := func(id domain.Identity) driving.SessionManager {
		return &fakeSession{store: store, identity: id}
	}
	return &Services{
		Identity:       fakeIdentity{},
		KnowledgeBases: kbs,
		Collections:    collections,
		NewSession:     newSession,
		Session:        newSession,
	}, collections, kbs
}

// runCLI executes args against svcs and returns the combined output.
func runCLI(t *testing.T, svcs *Services, args ...string) (string, error) {
	t.Helper()
	t.Setenv(UserEnv, "")
	t.Setenv(RoleEnv, "")

	SetServicesLoader(func(context.Context, string) (*Services, error) {
		if svcs == nil {
			return nil, errors.New("no services")
		}
		return svcs, nil
	})
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		SetServicesLoader(nil)
		resetFlags()
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags() {
	verbose = false
	homeDir = ""
	userFlag = ""
	roleFlag = ""
	chatSession = ""
	askChat = ""
	kbChat = ""
	kbConfirm = false
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}
