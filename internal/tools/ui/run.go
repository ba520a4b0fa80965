package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type Task func(ctx context.Context) ([]string, error)

type tickMsg struct{}

type doneMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	task    Task
	ctx     context.Context
	frame   int
	done    bool
	details []string
	err     error
}

func newModel(ctx context.Context, title string, task Task) model {
	return model{ctx: ctx, title: title, task: task}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), func() tea.Msg {
		details, err := m.task(m.ctx)
		return doneMsg{details: details, err: err}
	})
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	switch {
	case !m.done:
		fmt.Fprintf(&b, "%s %s\n", spinnerFrames[m.frame], titleStyle.Render(m.title))
	case m.err != nil:
		fmt.Fprintf(&b, "%s %s\n", failStyle.Render("✗"), titleStyle.Render(m.title))
	default:
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("✓"), titleStyle.Render(m.title))
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render(d))
		b.WriteString("\n")
	}
	if m.done && m.err != nil {
		b.WriteString(detailStyle.Render(failStyle.Render(m.err.Error())))
		b.WriteString("\n")
	}
	return b.String()
}

// Run shows a spinner while task runs and prints its details when done.
func Run(ctx context.Context, title string, task Task) ([]string, error) {
	final, err := tea.NewProgram(newModel(ctx, title, task), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	return m.details, m.err
}
