package tui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/unreleased/internal/service"
)

// ProgressMsg reports one finished repository.
// It is exported so that tests can inject it directly into ProgressModel.Update.
type ProgressMsg service.Progress

// DoneMsg tells the model that fetching is over.
type DoneMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	countStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	producedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// ProgressModel renders the state of a running fetch.
type ProgressModel struct {
	total    int
	done     int
	produced int
	skipped  int
	failed   int
	last     string
	finished bool
}

// NewProgressModel creates a model expecting total repositories.
func NewProgressModel(total int) ProgressModel {
	return ProgressModel{total: total}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		switch msg.Status {
		case service.StatusProduced:
			m.produced++
		case service.StatusSkipped:
			m.skipped++
		case service.StatusFailed:
			m.failed++
		}
		m.last = fmt.Sprintf("%s (%s)", msg.Repository.FullName(), msg.Status)
	case DoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

// View is empty once finished so the progress line disappears from the terminal.
func (m ProgressModel) View() string {
	if m.finished {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("fetching commit logs"))
	b.WriteString("  ")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total)))
	b.WriteString("  ")
	b.WriteString(producedStyle.Render(fmt.Sprintf("%d produced", m.produced)))
	b.WriteString("  ")
	b.WriteString(skippedStyle.Render(fmt.Sprintf("%d skipped", m.skipped)))
	b.WriteString("  ")
	b.WriteString(failedStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	if m.last != "" {
		b.WriteString("\n  last: ")
		b.WriteString(m.last)
	}
	b.WriteString("\n")
	return b.String()
}

// Progress runs a ProgressModel in the background, writing to out.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// StartProgress starts the display. It reads no input and installs no signal
// handler, leaving interrupts to the caller's context.
func StartProgress(out io.Writer, total int) *Progress {
	p := &Progress{
		program: tea.NewProgram(
			NewProgressModel(total),
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_, p.err = p.program.Run()
	}()
	return p
}

// Report forwards a progress update to the display.
func (p *Progress) Report(update service.Progress) {
	p.program.Send(ProgressMsg(update))
}

// Stop finishes the display and waits for it to restore the terminal.
func (p *Progress) Stop() error {
	p.program.Send(DoneMsg{})
	<-p.done
	return p.err
}
