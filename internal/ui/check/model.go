package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/plexaddons/versioncheck/internal/checker"
	"github.com/plexaddons/versioncheck/internal/registry"
	uiprogress "github.com/plexaddons/versioncheck/internal/ui/progress"
	"github.com/plexaddons/versioncheck/internal/ui/status"
	"github.com/plexaddons/versioncheck/internal/ui/styles"
)

const (
	stepFetch = iota
	stepCompare
)

// Runner performs a version check; *checker.Checker satisfies it
type Runner interface {
	CheckForUpdates(ctx context.Context) checker.Result
}

// Model is the bubbletea model for an interactive version check
type Model struct {
	spinner   spinner.Model
	ctx       context.Context
	cancel    context.CancelFunc
	runner    Runner
	addonName string

	steps []uiprogress.Step

	done   bool
	result checker.Result
}

// NewModel creates a new version check model. Quitting cancels the check
// through a child of ctx.
func NewModel(ctx context.Context, runner Runner, addonName string) Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return Model{
		spinner:   s,
		ctx:       ctx,
		cancel:    cancel,
		runner:    runner,
		addonName: addonName,
		steps: []uiprogress.Step{
			{Name: "Fetching registry", State: uiprogress.StateInProgress},
			{Name: "Comparing versions", State: uiprogress.StatePending},
		},
	}
}

// DoneMsg carries the finished check result
type DoneMsg struct {
	Result checker.Result
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.doCheck(),
	)
}

func (m Model) doCheck() tea.Cmd {
	return func() tea.Msg {
		return DoneMsg{Result: m.runner.CheckForUpdates(m.ctx)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancel()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.cancel()
		m.steps = resolveSteps(m.steps, msg.Result)

		return m, tea.Tick(time.Millisecond*150, func(t time.Time) tea.Msg {
			return tea.Quit()
		})
	}

	return m, nil
}

// resolveSteps marks the step a failure belongs to. Fetch failures stop at
// the first step; lookup and comparison failures happen after the registry
// arrived.
func resolveSteps(steps []uiprogress.Step, r checker.Result) []uiprogress.Step {
	out := make([]uiprogress.Step, len(steps))
	copy(out, steps)

	if r.Success {
		for i := range out {
			out[i].State = uiprogress.StateComplete
		}
		return out
	}

	var fetchErr *registry.FetchError
	if errors.As(r.Err, &fetchErr) {
		out[stepFetch].State = uiprogress.StateError
		return out
	}
	out[stepFetch].State = uiprogress.StateComplete
	out[stepCompare].State = uiprogress.StateError
	return out
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Bold(true)
	b.WriteString(titleStyle.Render(fmt.Sprintf("Checking %s for updates", m.addonName)))
	b.WriteString("\n\n")

	for _, step := range m.steps {
		icon := ""
		if step.State == uiprogress.StateInProgress {
			icon = m.spinner.View()
		}
		b.WriteString(uiprogress.FormatStep(step, icon))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString("\n")
		b.WriteString(status.FormatStatusLine(m.result))
		b.WriteString("\n")
		if details := status.FormatUpdateDetails(m.result); details != "" {
			b.WriteString("\n")
			b.WriteString(details)
		}
		b.WriteString("\n")
		b.WriteString(status.FormatFollowUp(m.result))
	}

	return b.String()
}

// IsDone reports whether the check finished
func (m Model) IsDone() bool {
	return m.done
}

// GetResult returns the check result; only meaningful once IsDone
func (m Model) GetResult() checker.Result {
	return m.result
}
