package cli

import (
	"context"
	"fmt"
	"io"

	"overlay-widgets/internal/api"
)

type controlFunc func(ctx context.Context, id string) (*api.TimerView, error)

// ControlCommand runs one of the single-id timer controls
type ControlCommand struct {
	operation    string
	result       string
	control      controlFunc
	errorHandler *ErrorHandler
	out          io.Writer
}

func newControlCommand(app *App, operation, result string, control controlFunc) *ControlCommand {
	return &ControlCommand{
		operation:    operation,
		result:       result,
		control:      control,
		errorHandler: NewErrorHandler(),
		out:          app.out,
	}
}

// NewPauseCommand creates the pause command handler
func NewPauseCommand(app *App) *ControlCommand {
	return newControlCommand(app, "pause timer", "Paused", app.businessAPI.PauseTimer)
}

// NewResumeCommand creates the resume command handler
func NewResumeCommand(app *App) *ControlCommand {
	return newControlCommand(app, "resume timer", "Resumed", app.businessAPI.ResumeTimer)
}

// NewSkipCommand creates the skip command handler
func NewSkipCommand(app *App) *ControlCommand {
	return newControlCommand(app, "skip phase", "Skipped to", app.businessAPI.SkipPhase)
}

// NewResetCommand creates the reset command handler
func NewResetCommand(app *App) *ControlCommand {
	return newControlCommand(app, "reset timer", "Reset", app.businessAPI.ResetTimer)
}

// Execute applies the control to the timer named by the single argument
func (c *ControlCommand) Execute(ctx context.Context, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	view, err := c.control(ctx, id)
	if err != nil {
		return c.errorHandler.Handle(c.operation, err)
	}

	fmt.Fprintf(c.out, "%s: %s\n", c.result, formatTimerLine(view))
	return nil
}
