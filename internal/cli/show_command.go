package cli

import (
	"context"
	"io"

	"overlay-widgets/internal/api"
)

// ShowCommand handles the show command
type ShowCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewShowCommand creates a new show command handler
func NewShowCommand(app *App) *ShowCommand {
	return &ShowCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
	}
}

// Execute prints the details of one timer
func (c *ShowCommand) Execute(ctx context.Context, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	view, err := c.businessAPI.GetTimer(ctx, id)
	if err != nil {
		return c.errorHandler.Handle("show timer", err)
	}

	printTimerDetails(c.out, view)
	return nil
}
