// Package progress renders the driver's phase-by-phase build status live
// on a terminal, replacing the teacher's raw ANSI-overwrite status lines
// (internal/batch.scheduler.refreshStatus in the pack) with a small
// Bubble Tea Elm-architecture model. When stdout is not a terminal, or
// during a dry run, Reporter.Event is a no-op and callers get the same
// behavior as running headless.
package progress

import (
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"
)

// IsTerminal reports whether stdout is attached to a terminal, mirroring
// distri's internal/batch.isTerminal check.
func IsTerminal() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}

// EventKind names a build-status transition the driver reports.
type EventKind int

const (
	PhaseStarted EventKind = iota
	TaskStarted
	TaskSucceeded
	TaskFailed
	PhaseDone
)

// Event is one status update posted to a Reporter.
type Event struct {
	Kind  EventKind
	Phase string
	Unit  string // unit name, or "" for phase-level events
}

// Reporter accepts Events from driver phases and renders them. Create one
// with New, call Event for every status change, and Close when the driver
// run ends.
type Reporter struct {
	prog *tea.Program
	mu   sync.Mutex
	live bool
}

// New returns a Reporter. If attach is false (headless run, dry run, or
// stdout isn't a terminal), Event and Close are safe no-ops.
func New(attach bool) *Reporter {
	r := &Reporter{live: attach}
	if !attach {
		return r
	}
	r.prog = tea.NewProgram(newModel())
	go func() {
		// Program.Run blocks until Quit; errors here aren't actionable,
		// the driver's own exit code is authoritative.
		_, _ = r.prog.Run()
	}()
	return r
}

// Event posts ev to the live display, if any.
func (r *Reporter) Event(ev Event) {
	if r == nil || !r.live {
		return
	}
	r.prog.Send(ev)
}

// Close stops the live display and leaves the terminal clean.
func (r *Reporter) Close() {
	if r == nil || !r.live {
		return
	}
	r.prog.Quit()
	r.prog.Wait()
}

// model is the Bubble Tea model backing the live view: one line per
// phase, counting started/succeeded/failed tasks.
type model struct {
	order  []string
	phases map[string]*phaseCounts
	done   bool

	titleStyle lipgloss.Style
	okStyle    lipgloss.Style
	failStyle  lipgloss.Style
}

type phaseCounts struct {
	started, succeeded, failed int
	finished                   bool
}

func newModel() model {
	return model{
		phases:     make(map[string]*phaseCounts),
		titleStyle: lipgloss.NewStyle().Bold(true),
		okStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		failStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case Event:
		pc, ok := m.phases[ev.Phase]
		if !ok {
			pc = &phaseCounts{}
			m.phases[ev.Phase] = pc
			m.order = append(m.order, ev.Phase)
		}
		switch ev.Kind {
		case TaskStarted:
			pc.started++
		case TaskSucceeded:
			pc.succeeded++
		case TaskFailed:
			pc.failed++
		case PhaseDone:
			pc.finished = true
		}
		return m, nil
	case tea.KeyMsg:
		if ev.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var out string
	for _, phase := range m.order {
		pc := m.phases[phase]
		status := "running"
		if pc.finished {
			status = m.okStyle.Render("done")
			if pc.failed > 0 {
				status = m.failStyle.Render("failed")
			}
		}
		out += fmt.Sprintf("%s  %d started, %d ok, %d failed  [%s]\n",
			m.titleStyle.Render(phase), pc.started, pc.succeeded, pc.failed, status)
	}
	return out
}
