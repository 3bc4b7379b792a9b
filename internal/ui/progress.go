// Package ui renders the interactive phase-progress view for c0 build.
// It is skipped when stdout is not a terminal, --quiet is set, or the
// plain CURSIVE0_DEBUG_PHASES log is requested.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cursive0/internal/driver"
)

var (
	phaseStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type phaseMsg struct {
	id     driver.PhaseID
	detail string
	start  bool
	ok     bool
}

type doneMsg struct{ ok bool }

type model struct {
	spin    spinner.Model
	current string
	lines   []string
	done    bool
	ok      bool
}

func newModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{spin: s}
}

func (m model) Init() tea.Cmd { return m.spin.Tick }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case phaseMsg:
		if v.start {
			m.current = fmt.Sprintf("%s %s", v.id, dimStyle.Render(v.detail))
		} else {
			mark := okStyle.Render("ok")
			if !v.ok {
				mark = failStyle.Render("failed")
			}
			m.lines = append(m.lines, fmt.Sprintf("%s %s", phaseStyle.Render(v.id.String()), mark))
			m.current = ""
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.ok = v.ok
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(v)
		return m, cmd
	case tea.KeyMsg:
		if v.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	out := ""
	for _, l := range m.lines {
		out += l + "\n"
	}
	if m.current != "" && !m.done {
		out += m.spin.View() + " " + m.current + "\n"
	}
	return out
}

// Progress is the live observer handed to the driver.
type Progress struct {
	prog *tea.Program
	done chan struct{}
}

// StartProgress launches the TUI on its own goroutine.
func StartProgress() *Progress {
	p := &Progress{done: make(chan struct{})}
	p.prog = tea.NewProgram(newModel())
	go func() {
		defer close(p.done)
		p.prog.Run()
	}()
	return p
}

// PhaseStart implements driver.Observer.
func (p *Progress) PhaseStart(id driver.PhaseID, detail string) {
	p.prog.Send(phaseMsg{id: id, detail: detail, start: true})
}

// PhaseEnd implements driver.Observer.
func (p *Progress) PhaseEnd(id driver.PhaseID, ok bool) {
	p.prog.Send(phaseMsg{id: id, ok: ok})
}

// Finish stops the view and waits for the terminal to be restored.
func (p *Progress) Finish(ok bool) {
	p.prog.Send(doneMsg{ok: ok})
	<-p.done
}
