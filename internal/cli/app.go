package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/config"
	"overlay-widgets/internal/errors"
)

// App represents the CLI application
type App struct {
	businessAPI api.BusinessAPI
	config      *config.Config
	out         io.Writer
	registry    *CommandRegistry
}

// NewApp creates a new CLI application instance with dependency injection.
// A nil cfg falls back to defaults and a nil out to stdout.
func NewApp(businessAPI api.BusinessAPI, cfg *config.Config, out io.Writer) *App {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if out == nil {
		out = os.Stdout
	}
	app := &App{
		businessAPI: businessAPI,
		config:      cfg,
		out:         out,
	}
	app.registry = NewCommandRegistry(app)
	return app
}

// Run executes the named command with the remaining arguments
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", a.registry.GetUsage())
	}
	return a.registry.Execute(ctx, args[0], args[1:])
}

// requireID returns the single timer id in args
func requireID(args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", errors.NewInvalidInputError("id", args, "expected exactly one timer id")
	}
	return strings.TrimSpace(args[0]), nil
}

// parseAdjustment parses a signed duration such as "+5m", "-90s" or "1h30m"
func parseAdjustment(value string) (time.Duration, error) {
	delta, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.NewInvalidInputError("delta", value, "expected a signed duration like +5m or -90s")
	}
	return delta, nil
}

// formatTimerLine renders a timer on a single line:
// id  name  phase remaining [paused] cycles n[/goal]
func formatTimerLine(view *api.TimerView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s %s", view.ID, view.Name, view.Phase, view.Remaining)
	if view.IsPaused {
		b.WriteString(" (paused)")
	}
	fmt.Fprintf(&b, "  cycles %s", formatCycles(view))
	return b.String()
}

func formatCycles(view *api.TimerView) string {
	if view.CycleGoal > 0 {
		return fmt.Sprintf("%d/%d", view.CyclesCompleted, view.CycleGoal)
	}
	return fmt.Sprintf("%d", view.CyclesCompleted)
}

// printTimerDetails writes the multi-line description used by show
func printTimerDetails(out io.Writer, view *api.TimerView) {
	status := "running"
	if view.IsPaused {
		status = "paused"
	}
	fmt.Fprintf(out, "Timer:     %s\n", view.Name)
	fmt.Fprintf(out, "ID:        %s\n", view.ID)
	fmt.Fprintf(out, "Phase:     %s (%s)\n", view.Phase, status)
	fmt.Fprintf(out, "Remaining: %s\n", view.Remaining)
	fmt.Fprintf(out, "Cycles:    %s\n", formatCycles(view))
	fmt.Fprintf(out, "Work:      %s\n", time.Duration(view.WorkMs)*time.Millisecond)
	fmt.Fprintf(out, "Break:     %s\n", time.Duration(view.BreakMs)*time.Millisecond)
	if view.GoalReached {
		fmt.Fprintln(out, "Goal reached!")
	}
}
