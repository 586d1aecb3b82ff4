// Package chats provides the stored chats view for the TUI.
package chats

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// View lists stored chats and opens, renames or deletes them.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.ChatList
	rename    *input.PromptInput
	statusbar *status.Bar

	sessions driving.SessionManager
	ctx      context.Context

	renaming bool
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new chats view.
func NewView(s *styles.Styles, km *keymap.KeyMap, sessions driving.SessionManager) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	rename := input.NewPromptInput(s, "Title", "new chat title")
	rename.Blur()

	return &View{
		styles:    s,
		keymap:    km,
		list:      list.NewChatList(s),
		rename:    rename,
		statusbar: status.NewBar(s, km, keymap.Chats),
		sessions:  sessions,
		ctx:       context.Background(),
	}
}

// WithContext sets the context for session calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the stored chats.
func (v *View) Init() tea.Cmd {
	return v.loadChats()
}

func (v *View) loadChats() tea.Cmd {
	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		chats, err := sessions.List(ctx)
		return messages.ChatsLoaded{Chats: chats, Err: err}
	}
}

// Update handles messages for the chats view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ChatsLoaded:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.list.SetChats(msg.Chats)
		return v, nil

	case messages.ChatRenamed:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.SetMessage("Renamed to " + msg.Title)
		return v, v.loadChats()

	case messages.ChatDeleted:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.SetMessage("Deleted " + msg.ID)
		return v, v.loadChats()

	case tea.KeyMsg:
		if v.renaming {
			return v.handleRenameKey(msg)
		}
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	selected := v.list.SelectedChat()

	switch {
	case msg.Type == tea.KeyEsc:
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case key.Matches(msg, v.keymap.Select):
		if selected == nil {
			return v, nil
		}
		return v, v.open(selected.ID)
	case key.Matches(msg, v.keymap.Rename):
		if selected == nil {
			return v, nil
		}
		v.renaming = true
		v.rename.Reset()
		return v, v.rename.Focus()
	case key.Matches(msg, v.keymap.Delete):
		if selected == nil {
			return v, nil
		}
		return v, v.remove(selected.ID)
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *View) handleRenameKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		v.renaming = false
		v.rename.Blur()
		return v, nil
	case tea.KeyEnter:
		title := strings.TrimSpace(v.rename.Value())
		selected := v.list.SelectedChat()
		v.renaming = false
		v.rename.Blur()
		if title == "" || selected == nil {
			return v, nil
		}
		return v, v.retitle(selected.ID, title)
	}

	var cmd tea.Cmd
	v.rename, cmd = v.rename.Update(msg)
	return v, cmd
}

func (v *View) open(id string) tea.Cmd {
	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		warning, err := sessions.Load(ctx, id)
		return messages.ChatLoaded{ID: id, Warning: warning, Err: err}
	}
}

// retitle opens the chat and renames it; renaming applies to the open chat.
func (v *View) retitle(id, title string) tea.Cmd {
	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		if cur := sessions.Current(); cur == nil || cur.ID != id {
			if _, err := sessions.Load(ctx, id); err != nil {
				return messages.ChatRenamed{Title: title, Err: err}
			}
		}
		return messages.ChatRenamed{Title: title, Err: sessions.Rename(ctx, title)}
	}
}

func (v *View) remove(id string) tea.Cmd {
	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		return messages.ChatDeleted{ID: id, Err: sessions.Delete(ctx, id)}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.Fail(err.Error())
}

// View renders the chats view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Chats"))
	b.WriteString("\n\n")
	b.WriteString(v.list.View())
	b.WriteString("\n")
	if v.renaming {
		b.WriteString(v.rename.View())
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render(v.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, height-6)
	v.rename.SetWidth(width)
	v.statusbar.SetWidth(width)
}

// Renaming reports whether a title is being edited.
func (v *View) Renaming() bool {
	return v.renaming
}

// Count returns the number of chats listed.
func (v *View) Count() int {
	return v.list.Count()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
