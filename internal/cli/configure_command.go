package cli

import (
	"context"
	"fmt"
	"io"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/errors"
)

// ConfigureCommand handles the configure command
type ConfigureCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	settings     api.TimerSettingsInput
}

// NewConfigureCommand creates a new configure command handler
func NewConfigureCommand(app *App, settings api.TimerSettingsInput) *ConfigureCommand {
	return &ConfigureCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
		settings:     settings,
	}
}

// Execute changes durations and goal of one timer
func (c *ConfigureCommand) Execute(ctx context.Context, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}
	if c.settings.WorkDuration == 0 && c.settings.BreakDuration == 0 && c.settings.CycleGoal == nil {
		return errors.NewInvalidInputError("settings", nil, "set at least one of --work, --break or --goal")
	}

	view, err := c.businessAPI.ConfigureTimer(ctx, id, c.settings)
	if err != nil {
		return c.errorHandler.Handle("configure timer", err)
	}

	fmt.Fprintf(c.out, "Configured: %s\n", formatTimerLine(view))
	return nil
}
