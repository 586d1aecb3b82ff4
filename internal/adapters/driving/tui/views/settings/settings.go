// Package settings provides the settings view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoSettingsService indicates the view was built without a settings service.
var ErrNoSettingsService = errors.New("settings service not available")

// View shows the current settings and edits single keys.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	err      error
	notice   string

	editing bool
	input   textinput.Model

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	input := textinput.New()
	input.Placeholder = "key value, e.g. thresholds.final_count 5"
	input.CharLimit = 512
	input.Width = 60

	return &View{
		styles:          s,
		settingsService: settingsService,
		input:           input,
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

func (v *View) loadSettings() tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := v.settingsService.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

func (v *View) saveSetting(key, value string) tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Key: key, Err: ErrNoSettingsService}
		}
		return messages.SettingsSaved{Key: key, Err: v.settingsService.Set(key, value)}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.settings = msg.Settings
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.notice = "Saved " + msg.Key
		return v, v.loadSettings()

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKey(msg)
		}
		switch msg.String() {
		case "esc", "q":
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
		case "e":
			v.editing = true
			v.notice = ""
			v.input.Reset()
			return v, v.input.Focus()
		case "r":
			return v, v.loadSettings()
		}
	}
	return v, nil
}

func (v *View) handleEditKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		v.editing = false
		v.input.Blur()
		return v, nil
	case tea.KeyEnter:
		key, value, ok := strings.Cut(strings.TrimSpace(v.input.Value()), " ")
		if !ok || key == "" {
			v.err = fmt.Errorf("%w: expected key and value", domain.ErrInvalidInput)
			return v, nil
		}
		v.editing = false
		v.input.Blur()
		return v, v.saveSetting(key, strings.TrimSpace(value))
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// View renders the settings.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if s := v.settings; s != nil {
		section := func(name string, lines ...string) {
			b.WriteString(v.styles.Subtitle.Render(name))
			b.WriteString("\n")
			for _, l := range lines {
				b.WriteString("  " + v.styles.Normal.Render(l) + "\n")
			}
			b.WriteString("\n")
		}
		section("Embedding",
			fmt.Sprintf("%s / %s", s.Embedding.Provider.Description(), s.Embedding.Model),
			configured(s.Embedding.IsConfigured()))
		section("LLM",
			fmt.Sprintf("%s / %s (temperature %g)", s.LLM.Provider.Description(), s.LLM.Model, s.LLM.Temperature),
			configured(s.LLM.IsConfigured()))
		section("Rerank", string(s.Rerank.Provider))
		section("Retrieval",
			fmt.Sprintf("candidates %d, final %d, history %d turns",
				s.Thresholds.CandidateCount, s.Thresholds.FinalCount, s.Thresholds.HistoryTurns))
		section("Uploads",
			strings.Join(s.Limits.Extensions, " "),
			fmt.Sprintf("up to %d files of %d MB", s.Limits.MaxFiles, s.Limits.MaxFileSizeMB))
	}

	if v.editing {
		b.WriteString(v.styles.InputField.Render(v.input.View()))
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	} else if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.editing {
		b.WriteString(v.styles.Help.Render("[Enter] Save  [Esc] Cancel"))
	} else {
		b.WriteString(v.styles.Help.Render("[e] Edit  [r] Reload  [Esc] Back"))
	}
	return b.String()
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Reset clears transient state before the view is shown.
func (v *View) Reset() {
	v.editing = false
	v.err = nil
	v.notice = ""
	v.input.Reset()
	v.input.Blur()
}

// Editing reports whether a key is being edited.
func (v *View) Editing() bool {
	return v.editing
}

// Settings returns the loaded settings.
func (v *View) Settings() *domain.AppSettings {
	return v.settings
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
