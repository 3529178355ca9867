package cli

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ServeCommand handles the serve command
type ServeCommand struct {
	backend Backend
}

// NewServeCommand creates a new serve command handler
func NewServeCommand(backend Backend) *ServeCommand {
	return &ServeCommand{backend: backend}
}

// Execute runs the server until ctx is cancelled
func (c *ServeCommand) Execute(ctx context.Context, args []string) error {
	log.Info().Msg("starting overlay widget server")
	if err := c.backend.Serve(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
