package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"overlay-widgets/internal/api"
)

var (
	colorWork  = lipgloss.Color("#fb4934")
	colorBreak = lipgloss.Color("#8ec07c")
	colorDim   = lipgloss.Color("#928374")
	colorGoal  = lipgloss.Color("#fabd2f")

	styleTitle     = lipgloss.NewStyle().Bold(true)
	styleWork      = lipgloss.NewStyle().Foreground(colorWork).Bold(true)
	styleBreak     = lipgloss.NewStyle().Foreground(colorBreak).Bold(true)
	styleDim       = lipgloss.NewStyle().Foreground(colorDim)
	styleGoal      = lipgloss.NewStyle().Foreground(colorGoal).Bold(true)
	styleError     = lipgloss.NewStyle().Foreground(colorWork)
	styleCountdown = lipgloss.NewStyle().Bold(true).Padding(0, 2)
)

// WatchCommand renders a live countdown for one timer
type WatchCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	pollInterval time.Duration
	timeout      time.Duration
	isTerminal   func() bool
}

// NewWatchCommand creates a new watch command handler
func NewWatchCommand(app *App) *WatchCommand {
	return &WatchCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
		pollInterval: app.config.Display.PollInterval,
		timeout:      app.config.Application.Timeout,
		isTerminal:   func() bool { return isTerminal(app.out) },
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Execute polls the timer until the user quits. When output is not a
// terminal it prints the current state once and returns.
func (c *WatchCommand) Execute(ctx context.Context, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	view, err := c.fetch(ctx, id)
	if err != nil {
		return c.errorHandler.Handle("watch timer", err)
	}

	if !c.isTerminal() {
		fmt.Fprintln(c.out, formatTimerLine(view))
		return nil
	}

	model := newWatchModel(ctx, c.businessAPI, view, c.pollInterval, c.timeout)
	program := tea.NewProgram(model, tea.WithOutput(c.out), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return c.errorHandler.Handle("watch timer", err)
	}

	if m, ok := final.(watchModel); ok && m.err != nil && c.errorHandler.IsNotFoundError(m.err) {
		fmt.Fprintln(c.out, "Timer was deleted")
	}
	return nil
}

func (c *WatchCommand) fetch(ctx context.Context, id string) (*api.TimerView, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.businessAPI.GetTimer(ctx, id)
}

type tickMsg time.Time

type timerMsg struct {
	view *api.TimerView
	err  error
}

// watchModel is the bubbletea model behind timer watch
type watchModel struct {
	ctx      context.Context
	api      api.BusinessAPI
	id       string
	interval time.Duration
	timeout  time.Duration
	view     *api.TimerView
	err      error
}

func newWatchModel(ctx context.Context, businessAPI api.BusinessAPI, view *api.TimerView, interval, timeout time.Duration) watchModel {
	if interval <= 0 {
		interval = time.Second
	}
	return watchModel{
		ctx:      ctx,
		api:      businessAPI,
		id:       view.ID,
		interval: interval,
		timeout:  timeout,
		view:     view,
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// call runs a BusinessAPI operation off the update loop
func (m watchModel) call(fn controlFunc) tea.Cmd {
	return func() tea.Msg {
		ctx := m.ctx
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		view, err := fn(ctx, m.id)
		return timerMsg{view: view, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.call(m.api.GetTimer), m.tick())

	case timerMsg:
		if msg.err != nil {
			m.err = msg.err
			if NewErrorHandler().IsNotFoundError(msg.err) {
				return m, tea.Quit
			}
			return m, nil
		}
		m.view = msg.view
		m.err = nil
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ", "space", "p":
			if m.view != nil && m.view.IsPaused {
				return m, m.call(m.api.ResumeTimer)
			}
			return m, m.call(m.api.PauseTimer)
		case "s":
			return m, m.call(m.api.SkipPhase)
		case "r":
			return m, m.call(m.api.ResetTimer)
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.view == nil {
		return ""
	}
	view := m.view

	phaseStyle := styleWork
	if view.Phase != "working" {
		phaseStyle = styleBreak
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render(view.Name))
	b.WriteString("  ")
	b.WriteString(phaseStyle.Render(strings.ToUpper(view.Phase)))
	if view.IsPaused {
		b.WriteString(styleDim.Render("  paused"))
	}
	b.WriteString("\n\n")
	b.WriteString(styleCountdown.Render(view.Remaining))
	b.WriteString("\n\n")
	b.WriteString("cycles " + formatCycles(view))
	if view.GoalReached {
		b.WriteString("  " + styleGoal.Render("goal reached"))
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(styleError.Render(NewErrorHandler().HandleSimple(m.err).Error()))
		b.WriteString("\n")
	}
	b.WriteString(styleDim.Render("space pause/resume • s skip • r reset • q quit"))
	b.WriteString("\n")
	return b.String()
}
