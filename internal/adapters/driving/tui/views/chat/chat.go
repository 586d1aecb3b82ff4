// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// reserved lines: title, input, status bar and spacing.
const chromeHeight = 7

// View shows the open chat and asks questions.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.PromptInput
	transcript viewport.Model
	statusbar  *status.Bar

	sessions driving.SessionManager
	ctx      context.Context

	title    string
	turns    []domain.Message
	sources  map[int][]string
	warning  string
	thinking bool
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, sessions driving.SessionManager) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewPromptInput(s, "Ask", "Ask a question about your documents..."),
		transcript: viewport.New(80, 24-chromeHeight),
		statusbar:  status.NewBar(s, km, keymap.Chat),
		sessions:   sessions,
		ctx:        context.Background(),
		sources:    make(map[int][]string),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context used for questions.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Refresh reloads the transcript from the open chat.
func (v *View) Refresh() {
	v.err = nil
	v.thinking = false
	v.sources = make(map[int][]string)
	v.turns = nil
	v.title = ""
	v.statusbar.Clear()
	v.statusbar.SetDocuments(0)

	if cur := v.sessions.Current(); cur != nil {
		v.title = cur.DisplayTitle()
		v.turns = append(v.turns, cur.Messages...)
		v.statusbar.SetDocuments(len(cur.ApprovedFiles))
	}
	if v.sessions.State() == domain.StateUploading {
		v.statusbar.SetState(status.StateUploading)
	}
	v.render()
}

// SetWarning shows a notice above the transcript, e.g. after loading a chat
// whose documents are gone.
func (v *View) SetWarning(warning string) {
	v.warning = warning
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.thinking = false
		if msg.Err != nil {
			v.err = msg.Err
			v.statusbar.Fail(domain.Reason(msg.Err))
			v.render()
			return v, nil
		}
		v.err = nil
		v.statusbar.Clear()
		v.turns = append(v.turns,
			domain.Message{Role: domain.MessageRoleUser, Content: msg.Question},
			domain.Message{Role: domain.MessageRoleAssistant, Content: msg.Answer.Text},
		)
		if len(msg.Answer.Sources) > 0 {
			v.sources[len(v.turns)-1] = msg.Answer.Sources
		}
		v.render()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case key.Matches(msg, v.keymap.Upload):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewUpload} }
	case key.Matches(msg, v.keymap.NewChat):
		return v, func() tea.Msg { return messages.NewChatRequested{} }
	case key.Matches(msg, v.keymap.ScrollUp):
		v.transcript.HalfViewUp()
		return v, nil
	case key.Matches(msg, v.keymap.ScrollDown):
		v.transcript.HalfViewDown()
		return v, nil
	case msg.Type == tea.KeyEnter:
		return v, v.ask()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) ask() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.thinking {
		return nil
	}
	v.input.Reset()
	v.thinking = true
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")

	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		answer, err := sessions.Ask(ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// render rebuilds the transcript content.
func (v *View) render() {
	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))

	var b strings.Builder
	if len(v.turns) == 0 {
		b.WriteString(v.styles.Muted.Render("No messages yet. Ask something about your documents."))
	}
	for i, m := range v.turns {
		if m.Role == domain.MessageRoleUser {
			b.WriteString(v.styles.UserTurn.Render("You"))
		} else {
			b.WriteString(v.styles.AssistantTurn.Render("docqa"))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(m.Content))
		b.WriteString("\n")
		if src := v.sources[i]; len(src) > 0 {
			b.WriteString(v.styles.Source.Render("Sources: " + strings.Join(src, ", ")))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	v.transcript.SetContent(b.String())
	v.transcript.GotoBottom()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	title := "Chat"
	if v.title != "" {
		title = v.title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	if v.warning != "" {
		b.WriteString(v.styles.Warning.Render(v.warning))
		b.WriteString("\n")
	}
	b.WriteString(v.transcript.View())
	b.WriteString("\n")
	if v.thinking {
		b.WriteString(v.styles.Muted.Render("Thinking..."))
		b.WriteString("\n")
	} else if v.err != nil {
		b.WriteString(v.styles.Error.Render(domain.Reason(v.err)))
		b.WriteString("\n")
	}
	b.WriteString(v.input.View())
	b.WriteString("\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = max(height-chromeHeight, 3)
	v.render()
}

// Focus focuses the question input.
func (v *View) Focus() tea.Cmd {
	return v.input.Focus()
}

// Thinking reports whether a question is in flight.
func (v *View) Thinking() bool {
	return v.thinking
}

// Turns returns the transcript shown.
func (v *View) Turns() []domain.Message {
	return v.turns
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
