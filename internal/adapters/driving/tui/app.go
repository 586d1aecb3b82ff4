package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/chats"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/upload"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	menuView     *menu.View
	chatView     *chat.View
	uploadView   *upload.View
	chatsView    *chats.View
	settingsView *settings.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	menuView := menu.NewView(s)
	menuView.SetIdentity(ports.Sessions.Identity())

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		menuView:     menuView,
		chatView:     chat.NewView(s, km, ports.Sessions),
		uploadView:   upload.NewView(s, ports.Sessions),
		chatsView:    chats.NewView(s, km, ports.Sessions),
		settingsView: settings.NewView(s, ports.Settings),
		currentView:  messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.uploadView.WithContext(ctx)
	a.chatsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("docqa"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo,funlen // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.NewChatRequested:
		sessions, ctx := a.ports.Sessions, a.ctx
		return a, func() tea.Msg {
			session, err := sessions.NewChat(ctx)
			return messages.ChatStarted{Session: session, Err: err}
		}

	case messages.ChatStarted:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.chatView.SetWarning("")
		return a, a.switchTo(messages.ViewUpload)

	case messages.ChatLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		cmd = a.switchTo(messages.ViewChat)
		a.chatView.SetWarning(msg.Warning)
		return a, cmd

	case messages.AnswerReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.FilesUploaded, messages.ProcessingCompleted:
		a.uploadView, cmd = a.uploadView.Update(msg)
		return a, cmd

	case messages.ChatsLoaded, messages.ChatRenamed, messages.ChatDeleted:
		a.chatsView, cmd = a.chatsView.Update(msg)
		return a, cmd

	case messages.SettingsLoaded, messages.SettingsSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewUpload:
		a.uploadView, cmd = a.uploadView.Update(msg)
	case messages.ViewChats:
		a.chatsView, cmd = a.chatsView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// switchTo activates view and runs its entry command.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.err = nil
	a.currentView = view

	switch view {
	case messages.ViewChat:
		if a.ports.Sessions.Current() == nil {
			return a.resumeLatest()
		}
		a.chatView.Refresh()
		return a.chatView.Focus()
	case messages.ViewUpload:
		return a.uploadView.Reset()
	case messages.ViewChats:
		return a.chatsView.Init()
	case messages.ViewSettings:
		a.settingsView.Reset()
		return a.settingsView.Init()
	case messages.ViewMenu, messages.ViewHelp:
	}
	return nil
}

// resumeLatest opens the most recent chat, or starts one if there is none.
func (a *App) resumeLatest() tea.Cmd {
	a.currentView = messages.ViewMenu
	sessions, ctx := a.ports.Sessions, a.ctx
	return func() tea.Msg {
		list, err := sessions.List(ctx)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		if len(list) == 0 {
			return messages.NewChatRequested{}
		}
		warning, err := sessions.Load(ctx, list[0].ID)
		return messages.ChatLoaded{ID: list[0].ID, Warning: warning, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var out string
	switch a.currentView {
	case messages.ViewChat:
		out = a.chatView.View()
	case messages.ViewUpload:
		out = a.uploadView.View()
	case messages.ViewChats:
		out = a.chatsView.View()
	case messages.ViewSettings:
		out = a.settingsView.View()
	case messages.ViewHelp:
		out = a.viewHelp()
	default:
		out = a.menuView.View()
	}
	if a.err != nil {
		out += "\n" + a.styles.Error.Render(domain.Reason(a.err))
	}
	return out
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Chat:
  enter       Ask the question
  pgup/pgdn   Scroll the conversation
  ctrl+u      Upload more documents
  ctrl+n      Start a new chat

Chats:
  enter       Open chat
  r           Rename chat
  d           Delete chat

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.uploadView.SetDimensions(width, height)
	a.chatsView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
