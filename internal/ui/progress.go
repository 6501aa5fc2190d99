package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/doorbell/internal/device"
)

// ErrInterrupted is returned when the user quits the progress display
var ErrInterrupted = errors.New("interrupted")

// ProgressMsg reports an acknowledged chunk to the upload model
type ProgressMsg device.Progress

// uploadDoneMsg ends the upload model
type uploadDoneMsg struct{ err error }

// UploadModel is a Bubble Tea model rendering one upload's progress bar
type UploadModel struct {
	label       string
	bar         progress.Model
	current     device.Progress
	done        bool
	interrupted bool
	err         error
}

// NewUploadModel creates a model labelled with label
func NewUploadModel(label string) UploadModel {
	return UploadModel{
		label: label,
		bar:   newBar(GetTerminalWidth()),
	}
}

func newBar(width int) progress.Model {
	barWidth := width - 30 // Leave room for percentage and chunk count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	return progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
}

// Init implements tea.Model
func (m UploadModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.current = device.Progress(msg)
	case uploadDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar = newBar(msg.Width)
	}
	return m, nil
}

// View implements tea.Model
func (m UploadModel) View() string {
	var b strings.Builder
	b.WriteString(ProgressLabelStyle.Render(m.label))
	b.WriteString("\n\n")

	note := "waiting for device"
	if m.current.TotalChunks > 0 {
		note = fmt.Sprintf("chunk %d/%d", m.current.Chunk, m.current.TotalChunks)
	}
	fraction := 0.0
	if m.current.TotalChunks > 0 {
		fraction = m.current.Fraction()
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %3.0f%%  %s", m.bar.ViewAs(fraction), fraction*100, ProgressNoteStyle.Render(note)),
	))
	b.WriteString("\n")

	if m.done && m.err == nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(SuccessTitleStyle.Render(SuccessMarker + " stored")))
		b.WriteString("\n")
	}
	return b.String()
}

// Current returns the last reported progress
func (m UploadModel) Current() device.Progress {
	return m.current
}

// UploadOperation performs an upload, reporting each acknowledged chunk
type UploadOperation func(onProgress device.ProgressFunc) error

// RunUpload runs op while displaying its progress on out. A terminal gets a
// Bubble Tea progress bar; anything else gets one line per chunk.
func RunUpload(out io.Writer, label string, op UploadOperation) error {
	if f, ok := out.(*os.File); ok && IsTerminal(f) {
		return runUploadProgram(f, label, op)
	}

	_, _ = fmt.Fprintln(out, label)
	return op(func(p device.Progress) {
		_, _ = fmt.Fprintf(out, "  chunk %d/%d  %3.0f%%\n", p.Chunk, p.TotalChunks, p.Fraction()*100)
	})
}

func runUploadProgram(out *os.File, label string, op UploadOperation) error {
	program := tea.NewProgram(NewUploadModel(label), tea.WithOutput(out))

	go func() {
		err := op(func(p device.Progress) {
			program.Send(ProgressMsg(p))
		})
		program.Send(uploadDoneMsg{err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("progress display failed: %w", err)
	}

	m := final.(UploadModel)
	if m.interrupted {
		return ErrInterrupted
	}
	return m.err
}
