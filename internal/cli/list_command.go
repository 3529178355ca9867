package cli

import (
	"context"
	"fmt"
	"io"

	"overlay-widgets/internal/api"
)

// ListCommand handles the list command
type ListCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewListCommand creates a new list command handler
func NewListCommand(app *App) *ListCommand {
	return &ListCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
	}
}

// Execute prints one line per timer, each reconciled to now
func (c *ListCommand) Execute(ctx context.Context, args []string) error {
	views, err := c.businessAPI.ListTimers(ctx)
	if err != nil {
		return c.errorHandler.Handle("list timers", err)
	}

	if len(views) == 0 {
		fmt.Fprintln(c.out, "No timers found")
		return nil
	}

	for _, view := range views {
		fmt.Fprintln(c.out, formatTimerLine(view))
	}
	return nil
}
