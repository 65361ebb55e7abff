// Package debugtui is a Bubble Tea terminal UI for stepping through a
// debug session: it renders the current line and variable snapshot, lets
// the user advance one step at a time, and collects input when the
// program is waiting for it. Grounded on ormasoftchile-gert's
// pkg/ecosystem/tui (Model/Init/Update/View over a channel of engine
// events) and pkg/tui/search.go (bubbles/textinput for inline entry).
package debugtui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/isipython-edu/isipython-core/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	lineStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// model is the Bubble Tea model wrapping a single debug session.
type model struct {
	sv     *session.Supervisor
	snap   session.Snapshot
	input  textinput.Model
	err    error
	quit   bool
}

func newModel(sv *session.Supervisor, snap session.Snapshot) model {
	ti := textinput.New()
	ti.Placeholder = "input"
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	return model{sv: sv, snap: snap, input: ti}
}

func (m model) Init() tea.Cmd { return nil }

// stepDoneMsg carries the result of advancing the session by one step or
// one supplied input line.
type stepDoneMsg struct {
	snap session.Snapshot
	err  error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.snap.Completed {
				_ = m.sv.Kill(m.snap.SessionID)
			}
			m.quit = true
			return m, tea.Quit
		case "enter":
			if m.snap.Completed {
				m.quit = true
				return m, tea.Quit
			}
			if m.snap.WaitingForInput {
				line := m.input.Value()
				m.input.Reset()
				return m, supplyInput(m.sv, m.snap.SessionID, line)
			}
			if m.snap.WaitingForDebugStep {
				return m, supplyInput(m.sv, m.snap.SessionID, "")
			}
		}

	case stepDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.quit = true
			return m, tea.Quit
		}
		m.snap = msg.snap
		if m.snap.Completed {
			return m, nil
		}
	}

	if m.snap.WaitingForInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func supplyInput(sv *session.Supervisor, sessionID, line string) tea.Cmd {
	return func() tea.Msg {
		snap, err := sv.SupplyInput(sessionID, line)
		return stepDoneMsg{snap: snap, err: err}
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("isipython debugger"))
	b.WriteString("\n\n")

	if m.snap.Output != "" {
		b.WriteString(m.snap.Output)
		if !strings.HasSuffix(m.snap.Output, "\n") {
			b.WriteString("\n")
		}
	}

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	case m.snap.Completed:
		if m.snap.Error != nil {
			b.WriteString(errStyle.Render(*m.snap.Error))
		} else {
			b.WriteString(doneStyle.Render("program finished"))
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("press enter to exit"))
	case m.snap.WaitingForDebugStep:
		b.WriteString(lineStyle.Render(fmt.Sprintf("stopped at line %d", m.snap.CurrentLine)))
		b.WriteString("\n")
		if len(m.snap.Variables) > 0 {
			for name, val := range m.snap.Variables {
				b.WriteString(fmt.Sprintf("  %s = %v\n", name, val))
			}
		}
		b.WriteString(dimStyle.Render("press enter to step, q to quit"))
	case m.snap.WaitingForInput:
		b.WriteString(m.snap.Prompt)
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}

	return b.String()
}

// Run transpiles source in debug mode, starts a session against it, and
// drives an interactive Bubble Tea program that steps through it one
// breakpoint at a time.
func Run(sv *session.Supervisor, source string) error {
	snap, err := sv.Start(context.Background(), source, session.ModeDebug)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newModel(sv, snap))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
