// Package menu is the TUI start screen.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Action is what choosing a menu item does.
type Action int

const (
	ActionView Action = iota
	ActionNewChat
	ActionQuit
)

// Item is one menu entry.
type Item struct {
	Label  string
	Action Action
	View   messages.ViewType
}

// View lists the entry points of the app. Items can also be chosen by
// their number.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	identity domain.Identity
	width    int
	height   int
	ready    bool
}

// NewView returns the menu with the first item selected.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		items: []Item{
			{Label: "New chat", Action: ActionNewChat},
			{Label: "Continue chat", View: messages.ViewChat},
			{Label: "Chats", View: messages.ViewChats},
			{Label: "Settings", View: messages.ViewSettings},
			{Label: "Help", View: messages.ViewHelp},
			{Label: "Quit", Action: ActionQuit},
		},
		width:  80,
		height: 24,
	}
}

// SetIdentity sets who the menu greets.
func (v *View) SetIdentity(id domain.Identity) {
	v.identity = id
}

func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "k":
			v.selected = max(v.selected-1, 0)
		case "down", "j":
			v.selected = min(v.selected+1, len(v.items)-1)
		case "enter":
			return v, v.choose(v.items[v.selected])
		case "q":
			return v, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && int(key[0]-'0') <= len(v.items) {
				v.selected = int(key[0] - '1')
				return v, v.choose(v.items[v.selected])
			}
		}
	}
	return v, nil
}

func (v *View) choose(item Item) tea.Cmd {
	switch item.Action {
	case ActionQuit:
		return tea.Quit
	case ActionNewChat:
		return func() tea.Msg { return messages.NewChatRequested{} }
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("docqa"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render(v.greeting()))
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%d. %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [1-6] Choose  [Enter] Select  [q] Quit"))
	return b.String()
}

// greeting names the user and whose knowledge base their chats use.
func (v *View) greeting() string {
	line := "Ask questions about your documents"
	if v.identity.User == "" {
		return line
	}
	line += " - " + v.identity.User
	if v.identity.TenantKey().IsShared() {
		line += fmt.Sprintf(" (%s admin, shared knowledge base)", v.identity.Organization)
	}
	return line
}

func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected is the index of the highlighted item.
func (v *View) Selected() int {
	return v.selected
}
