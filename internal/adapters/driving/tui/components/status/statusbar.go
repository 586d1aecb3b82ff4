// Package status renders the one-line bar at the bottom of the chat screens.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// State is what the pipeline is doing for the open chat.
type State string

const (
	StateReady      State = "ready"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateThinking   State = "thinking"
	StateError      State = "error"
)

// busyLabels are shown while a state is in progress.
var busyLabels = map[State]string{
	StateUploading:  "Uploading...",
	StateProcessing: "Processing documents...",
	StateThinking:   "Thinking...",
}

// Bar shows the chat state on the left and key hints on the right.
type Bar struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	context   keymap.Context
	state     State
	message   string
	documents int
	width     int
}

// NewBar returns a bar advertising the bindings of context c. Nil styles or
// keymap fall back to the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap, c keymap.Context) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, context: c, state: StateReady, width: 80}
}

func (s *Bar) View() string {
	left, right := s.status(), s.hints()
	gap := max(1, s.width-lipgloss.Width(left)-lipgloss.Width(right))
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) status() string {
	if label, ok := busyLabels[s.state]; ok {
		style := s.styles.Muted
		if s.state == StateProcessing {
			style = s.styles.Warning
		}
		return style.Render(label)
	}
	switch {
	case s.state == StateError && s.message != "":
		return s.styles.Error.Render("Error: " + s.message)
	case s.state == StateError:
		return s.styles.Error.Render("Error")
	case s.message != "":
		return s.styles.Normal.Render(s.message)
	case s.documents == 1:
		return s.styles.Normal.Render("1 document")
	case s.documents > 1:
		return s.styles.Normal.Render(fmt.Sprintf("%d documents", s.documents))
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) hints() string {
	bindings := s.keymap.Hints(s.context)
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Help().Key + ": " + b.Help().Desc
	}
	return s.styles.Muted.Render(strings.Join(parts, " | "))
}

func (s *Bar) SetState(state State)  { s.state = state }
func (s *Bar) State() State          { return s.state }
func (s *Bar) SetMessage(msg string) { s.message = msg }
func (s *Bar) Message() string       { return s.message }
func (s *Bar) SetDocuments(n int)    { s.documents = n }
func (s *Bar) SetWidth(width int)    { s.width = width }

// Fail shows err's message in the error state.
func (s *Bar) Fail(msg string) {
	s.state = StateError
	s.message = msg
}

// Clear returns to the ready state without a message. The document count
// is kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
