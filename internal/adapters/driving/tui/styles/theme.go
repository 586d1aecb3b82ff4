// Package styles holds the colours and lipgloss styles of the docqa TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Palette is the set of colours the styles are built from. Each colour
// adapts to light and dark terminal backgrounds.
type Palette struct {
	Accent    lipgloss.AdaptiveColor // titles, assistant turns
	User      lipgloss.AdaptiveColor // user turns, subtitles
	Text      lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	StatusBar lipgloss.AdaptiveColor
}

// DefaultPalette is a Catppuccin-like palette: Latte on light
// backgrounds, Mocha on dark ones.
func DefaultPalette() Palette {
	return Palette{
		Accent:    lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#0EA5E9"},
		User:      lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"},
		Text:      lipgloss.AdaptiveColor{Light: "#4C4F69", Dark: "#CDD6F4"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8C8FA1", Dark: "#6C7086"},
		Success:   lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"},
		Warning:   lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"},
		Error:     lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"},
		Border:    lipgloss.AdaptiveColor{Light: "#BCC0CC", Dark: "#45475A"},
		StatusBar: lipgloss.AdaptiveColor{Light: "#E6E9EF", Dark: "#181825"},
	}
}

// Styles are the rendered styles shared by every view.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Chat transcript.
	UserTurn      lipgloss.Style
	AssistantTurn lipgloss.Style
	Source        lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles builds styles from p.
func NewStyles(p Palette) *Styles {
	bold := lipgloss.NewStyle().Bold(true)
	rounded := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border)

	return &Styles{
		Title:    bold.Foreground(p.Accent),
		Subtitle: bold.Foreground(p.User),
		Normal:   lipgloss.NewStyle().Foreground(p.Text),
		Muted:    lipgloss.NewStyle().Foreground(p.Muted),
		Selected: bold.Foreground(p.Text).Background(p.Accent),
		Help:     lipgloss.NewStyle().Foreground(p.Muted),

		Success: lipgloss.NewStyle().Foreground(p.Success),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
		Error:   lipgloss.NewStyle().Foreground(p.Error),

		UserTurn:      bold.Foreground(p.User),
		AssistantTurn: bold.Foreground(p.Accent),
		Source:        lipgloss.NewStyle().Italic(true).Foreground(p.Muted),

		InputField: rounded.Padding(0, 1),
		StatusBar:  lipgloss.NewStyle().Foreground(p.Muted).Background(p.StatusBar).Padding(0, 1),
		Border:     rounded,
	}
}

// DefaultStyles uses DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}

// Extraction colours an ingest report line by how the document's text
// was obtained: green for a text layer, amber for OCR, red for failure.
func (s *Styles) Extraction(m domain.ExtractionMethod) lipgloss.Style {
	switch m {
	case domain.ExtractionDirect:
		return s.Success
	case domain.ExtractionOCR:
		return s.Warning
	case domain.ExtractionFailed:
		return s.Error
	}
	return s.Normal
}
