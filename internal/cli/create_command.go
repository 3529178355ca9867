package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/errors"
)

// CreateCommand handles the create command
type CreateCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	settings     api.TimerSettingsInput
}

// NewCreateCommand creates a new create command handler. Unset settings
// fall back to the configured defaults.
func NewCreateCommand(app *App, settings api.TimerSettingsInput) *CreateCommand {
	return &CreateCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
		settings:     settings,
	}
}

// Execute creates a paused timer named by the joined arguments
func (c *CreateCommand) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.NewInvalidInputError("name", "", "a timer name is required")
	}
	name := strings.Join(args, " ")

	view, err := c.businessAPI.CreateTimer(ctx, name, c.settings)
	if err != nil {
		return c.errorHandler.Handle("create timer", err)
	}

	fmt.Fprintf(c.out, "Created timer: %s\n", formatTimerLine(view))
	return nil
}
