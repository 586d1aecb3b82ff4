package chats

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockSessions implements driving.SessionManager over an in-memory list.
type mockSessions struct {
	chats   []domain.SessionSummary
	current *domain.Session
	loaded  []string
	listErr error
}

func newMockSessions() *mockSessions {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return &mockSessions{chats: []domain.SessionSummary{
		{ID: "chat-2", Title: "Expenses", UpdatedAt: at, Messages: 4},
		{ID: "chat-1", Title: "Leave policy", UpdatedAt: at.Add(-time.Hour), Messages: 2},
	}}
}

func (m *mockSessions) State() domain.SessionState { return domain.StateChatting }

func (m *mockSessions) Current() *domain.Session { return m.current }

func (m *mockSessions) Identity() domain.Identity { return domain.Identity{} }

func (m *mockSessions) NewChat(_ context.Context) (*domain.Session, error) { return nil, nil }

func (m *mockSessions) Upload(_ context.Context, _ []domain.UploadFile) ([]domain.ApprovedFile, []driving.Rejection, error) {
	return nil, nil, nil
}

func (m *mockSessions) Process(_ context.Context) (*driving.IngestReport, error) { return nil, nil }

func (m *mockSessions) Ask(_ context.Context, _ string) (domain.Answer, error) {
	return domain.Answer{}, nil
}

func (m *mockSessions) Load(_ context.Context, id string) (string, error) {
	for _, c := range m.chats {
		if c.ID == id {
			m.loaded = append(m.loaded, id)
			m.current = &domain.Session{ID: c.ID, Title: c.Title}
			return "", nil
		}
	}
	return "", domain.ErrNotFound
}

func (m *mockSessions) Rename(_ context.Context, title string) error {
	if m.current == nil {
		return domain.ErrNoActiveSession
	}
	for i := range m.chats {
		if m.chats[i].ID == m.current.ID {
			m.chats[i].Title = title
		}
	}
	return nil
}

func (m *mockSessions) List(_ context.Context) ([]domain.SessionSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.SessionSummary(nil), m.chats...), nil
}

func (m *mockSessions) Delete(_ context.Context, id string) error {
	for i, c := range m.chats {
		if c.ID == id {
			m.chats = append(m.chats[:i], m.chats[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockSessions) Close(_ context.Context) error { return nil }

func drive(v *View, cmd tea.Cmd) {
	for cmd != nil {
		_, cmd = v.Update(cmd())
	}
}

func loadedView(t *testing.T, m *mockSessions) *View {
	t.Helper()
	view := NewView(nil, nil, m)
	view.SetDimensions(100, 30)
	drive(view, view.Init())
	return view
}

func TestView_InitListsChats(t *testing.T) {
	view := loadedView(t, newMockSessions())

	assert.Equal(t, 2, view.Count())
	output := view.View()
	assert.Contains(t, output, "Expenses")
	assert.Contains(t, output, "Leave policy")
}

func TestView_ListError(t *testing.T) {
	m := newMockSessions()
	m.listErr = domain.ErrSessionResolution
	view := loadedView(t, m)

	assert.ErrorIs(t, view.Err(), domain.ErrSessionResolution)
}

func TestView_SelectOpensChat(t *testing.T) {
	m := newMockSessions()
	view := loadedView(t, m)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ChatLoaded{ID: "chat-1"}, cmd())
	assert.Equal(t, []string{"chat-1"}, m.loaded)
}

func TestView_RenameSelected(t *testing.T) {
	m := newMockSessions()
	view := loadedView(t, m)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.True(t, view.Renaming())
	for _, r := range "Travel" {
		view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(view, cmd)

	assert.False(t, view.Renaming())
	assert.Equal(t, "Travel", m.chats[0].Title)
	assert.Contains(t, view.View(), "Travel")
}

func TestView_RenameCancelled(t *testing.T) {
	m := newMockSessions()
	view := loadedView(t, m)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.False(t, view.Renaming())
	assert.Empty(t, m.loaded)
}

func TestView_DeleteReloads(t *testing.T) {
	m := newMockSessions()
	view := loadedView(t, m)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	drive(view, cmd)

	assert.Equal(t, 1, view.Count())
	assert.NotContains(t, view.View(), "Expenses")
}

func TestView_EmptyListIgnoresActions(t *testing.T) {
	view := loadedView(t, &mockSessions{})

	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyEnter},
		{Type: tea.KeyRunes, Runes: []rune{'r'}},
		{Type: tea.KeyRunes, Runes: []rune{'d'}},
	} {
		_, cmd := view.Update(k)
		assert.Nil(t, cmd)
	}
	assert.Contains(t, view.View(), "No chats yet")
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil, newMockSessions())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}
