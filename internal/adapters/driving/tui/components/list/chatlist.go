// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChatList displays stored chats in a navigable list.
type ChatList struct {
	chats    []domain.SessionSummary
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewChatList creates a new chat list component.
func NewChatList(s *styles.Styles) *ChatList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ChatList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the chat list.
func (c *ChatList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ChatList) Update(msg tea.Msg) (*ChatList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the chat list.
func (c *ChatList) View() string {
	if len(c.chats) == 0 {
		return c.styles.Muted.Render("No chats yet")
	}

	lines := make([]string, 0, len(c.chats)+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Chats (%d)", len(c.chats))), "")

	// One line per chat
	visible := c.height - 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := start + visible
	if end > len(c.chats) {
		end = len(c.chats)
	}

	for i := start; i < end; i++ {
		lines = append(lines, c.renderChat(i, c.chats[i]))
	}
	return strings.Join(lines, "\n")
}

func (c *ChatList) renderChat(index int, chat domain.SessionSummary) string {
	title := chat.Title
	if title == "" {
		title = chat.ID
	}
	maxTitleLen := c.width - 30
	if maxTitleLen < 10 {
		maxTitleLen = 10
	}
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen-3]) + "..."
	}

	meta := fmt.Sprintf("%s  %d msgs", chat.UpdatedAt.Format("2006-01-02 15:04"), chat.Messages)
	if index == c.selected {
		return c.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", maxTitleLen, title, meta))
	}
	return c.styles.Normal.Render(fmt.Sprintf("  %-*s  ", maxTitleLen, title)) + c.styles.Muted.Render(meta)
}

// SetChats replaces the listed chats, keeping the selection in range.
func (c *ChatList) SetChats(chats []domain.SessionSummary) {
	c.chats = chats
	if c.selected >= len(chats) {
		c.selected = len(chats) - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
}

// Chats returns the listed chats.
func (c *ChatList) Chats() []domain.SessionSummary {
	return c.chats
}

// Selected returns the index of the selected chat.
func (c *ChatList) Selected() int {
	return c.selected
}

// SelectedChat returns the selected chat, or nil if the list is empty.
func (c *ChatList) SelectedChat() *domain.SessionSummary {
	if c.selected < 0 || c.selected >= len(c.chats) {
		return nil
	}
	return &c.chats[c.selected]
}

// MoveUp moves selection up.
func (c *ChatList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *ChatList) MoveDown() {
	if c.selected < len(c.chats)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *ChatList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of chats.
func (c *ChatList) Count() int {
	return len(c.chats)
}
