// Package keymap holds the TUI key bindings.
package keymap

import "github.com/charmbracelet/bubbles/key"

// Context names the screen whose bindings are being advertised.
type Context int

const (
	Global Context = iota
	Chat
	Chats
)

// KeyMap is the full set of bindings. Views match keys against the fields
// with key.Matches.
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Back   key.Binding
	Send   key.Binding
	Up     key.Binding
	Down   key.Binding
	Select key.Binding

	NewChat key.Binding
	Upload  key.Binding
	Rename  key.Binding
	Delete  key.Binding

	// Transcript paging in the chat view.
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the stock bindings. Chat actions use ctrl chords so
// that letters stay free for typing questions.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:   bind("q", "quit", "q", "ctrl+c"),
		Help:   bind("?", "help", "?"),
		Back:   bind("esc", "back", "esc"),
		Send:   bind("enter", "send", "enter"),
		Up:     bind("↑/k", "up", "up", "k"),
		Down:   bind("↓/j", "down", "down", "j"),
		Select: bind("enter", "open", "enter"),

		NewChat: bind("ctrl+n", "new chat", "ctrl+n"),
		Upload:  bind("ctrl+u", "upload", "ctrl+u"),
		Rename:  bind("r", "rename", "r"),
		Delete:  bind("d", "delete", "d"),

		ScrollUp:   bind("pgup", "scroll up", "pgup"),
		ScrollDown: bind("pgdn", "scroll down", "pgdown"),
	}
}

// Hints returns the bindings worth advertising in the status bar of c.
func (k *KeyMap) Hints(c Context) []key.Binding {
	switch c {
	case Chat:
		return []key.Binding{k.Send, k.Upload, k.NewChat, k.Back}
	case Chats:
		return []key.Binding{k.Select, k.Rename, k.Delete, k.Back}
	default:
		return []key.Binding{k.Quit, k.Help}
	}
}
