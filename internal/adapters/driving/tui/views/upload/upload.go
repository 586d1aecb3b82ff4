// Package upload provides the document upload view for the TUI.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

type phase int

const (
	phaseInput phase = iota
	phaseUploading
	phaseProcessing
	phaseDone
)

// View collects document paths, uploads them and indexes the batch.
type View struct {
	styles *styles.Styles
	input  *input.PromptInput

	sessions driving.SessionManager
	ctx      context.Context

	phase    phase
	approved []domain.ApprovedFile
	rejected []driving.Rejection
	report   *driving.IngestReport
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new upload view.
func NewView(s *styles.Styles, sessions driving.SessionManager) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:   s,
		input:    input.NewPromptInput(s, "Files", "paths separated by spaces, e.g. ~/handbook.pdf scan.png"),
		sessions: sessions,
		ctx:      context.Background(),
	}
}

// WithContext sets the context used for uploads and ingestion.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Reset clears the previous batch.
func (v *View) Reset() tea.Cmd {
	v.phase = phaseInput
	v.approved = nil
	v.rejected = nil
	v.report = nil
	v.err = nil
	v.input.Reset()
	return v.input.Focus()
}

// Update handles messages for the upload view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.FilesUploaded:
		v.rejected = msg.Rejected
		v.approved = msg.Approved
		if msg.Err != nil {
			v.phase = phaseInput
			v.err = msg.Err
			return v, nil
		}
		if len(msg.Approved) == 0 {
			v.phase = phaseInput
			v.err = errors.New("no documents were accepted")
			return v, nil
		}
		v.phase = phaseProcessing
		return v, v.process()

	case messages.ProcessingCompleted:
		v.report = msg.Report
		if msg.Err != nil {
			v.phase = phaseInput
			v.err = msg.Err
			return v, nil
		}
		v.phase = phaseDone
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.phase == phaseUploading || v.phase == phaseProcessing {
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		target := messages.ViewMenu
		if v.sessions.State() == domain.StateChatting {
			target = messages.ViewChat
		}
		return v, func() tea.Msg { return messages.ViewChanged{View: target} }
	case tea.KeyEnter:
		if v.phase == phaseDone {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
		}
		paths := strings.Fields(v.input.Value())
		if len(paths) == 0 {
			return v, nil
		}
		v.err = nil
		v.rejected = nil
		v.report = nil
		v.phase = phaseUploading
		return v, v.upload(paths)
	}

	if v.phase == phaseDone {
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) upload(paths []string) tea.Cmd {
	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		files, closeAll, err := openFiles(paths)
		if err != nil {
			return messages.FilesUploaded{Err: err}
		}
		defer closeAll()
		approved, rejected, err := sessions.Upload(ctx, files)
		return messages.FilesUploaded{Approved: approved, Rejected: rejected, Err: err}
	}
}

func (v *View) process() tea.Cmd {
	sessions, ctx := v.sessions, v.ctx
	return func() tea.Msg {
		report, err := sessions.Process(ctx)
		return messages.ProcessingCompleted{Report: report, Err: err}
	}
}

// openFiles opens local paths, expanding a leading ~.
func openFiles(paths []string) ([]domain.UploadFile, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]domain.UploadFile, 0, len(paths))
	for _, p := range paths {
		if rest, ok := strings.CutPrefix(p, "~/"); ok {
			if home, err := os.UserHomeDir(); err == nil {
				p = filepath.Join(home, rest)
			}
		}
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory: %w", p, domain.ErrInvalidInput)
		}
		files = append(files, domain.UploadFile{Name: filepath.Base(p), Size: info.Size(), Content: f})
	}
	return files, closeAll, nil
}

// View renders the upload view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Upload documents"))
	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("PDF, Word and image files. Scanned pages are read with OCR."))
	b.WriteString("\n\n")

	switch v.phase {
	case phaseInput:
		b.WriteString(v.input.View())
		b.WriteString("\n")
	case phaseUploading:
		b.WriteString(v.styles.Muted.Render("Uploading..."))
		b.WriteString("\n")
	case phaseProcessing:
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Processing %d documents...", len(v.approved))))
		b.WriteString("\n")
	case phaseDone:
		b.WriteString(v.styles.Success.Render("Ready."))
		b.WriteString("\n")
	}

	for _, r := range v.rejected {
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("  rejected %s: %s", r.Name, r.Reason)))
		b.WriteString("\n")
	}
	if v.report != nil {
		b.WriteString(v.renderReport())
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render(domain.Reason(v.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.phase == phaseDone {
		b.WriteString(v.styles.Help.Render("[Enter] Start chatting  [Esc] Back"))
	} else {
		b.WriteString(v.styles.Help.Render("[Enter] Upload  [Esc] Back"))
	}
	return b.String()
}

func (v *View) renderReport() string {
	var b strings.Builder
	names := make([]string, 0, len(v.report.Methods))
	for name := range v.report.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		method := v.report.Methods[name]
		b.WriteString(v.styles.Extraction(method).Render(fmt.Sprintf("  %s: %s", name, method)))
		b.WriteString("\n")
	}
	for _, r := range v.report.Rejected {
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("  rejected %s: %s", r.Name, r.Reason)))
		b.WriteString("\n")
	}
	b.WriteString(v.styles.Normal.Render(fmt.Sprintf("Indexed %d new passages from %d documents.",
		v.report.Indexed, v.report.Documents)))
	b.WriteString("\n")
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
}

// Busy reports whether a batch is being uploaded or processed.
func (v *View) Busy() bool {
	return v.phase == phaseUploading || v.phase == phaseProcessing
}

// Report returns the last ingestion report.
func (v *View) Report() *driving.IngestReport {
	return v.report
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
