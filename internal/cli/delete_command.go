package cli

import (
	"context"
	"fmt"
	"io"

	"overlay-widgets/internal/api"
)

// DeleteCommand handles the delete command
type DeleteCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewDeleteCommand creates a new delete command handler
func NewDeleteCommand(app *App) *DeleteCommand {
	return &DeleteCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
	}
}

// Execute removes the timer. Overlays subscribed to it are told via a
// timer.deleted event.
func (c *DeleteCommand) Execute(ctx context.Context, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	if err := c.businessAPI.DeleteTimer(ctx, id); err != nil {
		return c.errorHandler.Handle("delete timer", err)
	}

	fmt.Fprintf(c.out, "Deleted timer %s\n", id)
	return nil
}
