package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestDefaultPalette_StatusColoursAreDistinct(t *testing.T) {
	p := DefaultPalette()

	for _, mode := range []func(lipgloss.AdaptiveColor) string{
		func(c lipgloss.AdaptiveColor) string { return c.Light },
		func(c lipgloss.AdaptiveColor) string { return c.Dark },
	} {
		seen := map[string]bool{}
		for _, c := range []lipgloss.AdaptiveColor{p.Accent, p.User, p.Success, p.Warning, p.Error} {
			v := mode(c)
			assert.NotEmpty(t, v)
			assert.False(t, seen[v], "duplicate colour %s", v)
			seen[v] = true
		}
	}
}

func TestNewStyles(t *testing.T) {
	p := DefaultPalette()
	s := NewStyles(p)

	assert.True(t, s.Title.GetBold())
	assert.Equal(t, p.Accent, s.Title.GetForeground())
	assert.Equal(t, p.User, s.UserTurn.GetForeground())
	assert.Equal(t, p.Accent, s.AssistantTurn.GetForeground())
	assert.True(t, s.Source.GetItalic())
	assert.Equal(t, p.StatusBar, s.StatusBar.GetBackground())
	assert.Equal(t, lipgloss.RoundedBorder(), s.InputField.GetBorderStyle())
}

func TestNewStyles_BaseStylesAreNotShared(t *testing.T) {
	s := DefaultStyles()

	assert.NotEqual(t, s.UserTurn.GetForeground(), s.Title.GetForeground())
	assert.Equal(t, 1, s.InputField.GetPaddingLeft())
	assert.Zero(t, s.Border.GetPaddingLeft())
}

func TestExtraction(t *testing.T) {
	s := DefaultStyles()

	tests := []struct {
		method domain.ExtractionMethod
		want   lipgloss.Style
	}{
		{domain.ExtractionDirect, s.Success},
		{domain.ExtractionOCR, s.Warning},
		{domain.ExtractionFailed, s.Error},
		{"", s.Normal},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.want.GetForeground(), s.Extraction(tt.method).GetForeground())
		})
	}
}

func TestRender(t *testing.T) {
	s := DefaultStyles()
	assert.Contains(t, s.Source.Render("terms.pdf"), "terms.pdf")
	assert.Contains(t, s.StatusBar.Render("ready"), "ready")
}
