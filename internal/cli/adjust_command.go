package cli

import (
	"context"
	"fmt"
	"io"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/errors"
)

// AdjustCommand handles the adjust command
type AdjustCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewAdjustCommand creates a new adjust command handler
func NewAdjustCommand(app *App) *AdjustCommand {
	return &AdjustCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
	}
}

// Execute adds a signed duration to the current phase: adjust <id> <±duration>
func (c *AdjustCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.NewInvalidInputError("args", args, "expected <id> <±duration>")
	}

	delta, err := parseAdjustment(args[1])
	if err != nil {
		return err
	}

	view, err := c.businessAPI.AdjustTimer(ctx, args[0], delta)
	if err != nil {
		return c.errorHandler.Handle("adjust timer", err)
	}

	fmt.Fprintf(c.out, "Adjusted by %s: %s\n", delta, formatTimerLine(view))
	return nil
}
