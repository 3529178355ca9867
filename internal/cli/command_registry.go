package cli

import (
	"context"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/errors"
)

// Command represents a CLI command
type Command interface {
	Execute(ctx context.Context, args []string) error
}

// CommandRegistry manages the timer commands that take only positional arguments
type CommandRegistry struct {
	commands map[string]Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(app *App) *CommandRegistry {
	registry := &CommandRegistry{
		commands: make(map[string]Command),
	}

	registry.Register("create", NewCreateCommand(app, api.TimerSettingsInput{}))
	registry.Register("list", NewListCommand(app))
	registry.Register("show", NewShowCommand(app))
	registry.Register("pause", NewPauseCommand(app))
	registry.Register("resume", NewResumeCommand(app))
	registry.Register("skip", NewSkipCommand(app))
	registry.Register("reset", NewResetCommand(app))
	registry.Register("delete", NewDeleteCommand(app))
	registry.Register("adjust", NewAdjustCommand(app))
	registry.Register("watch", NewWatchCommand(app))

	return registry
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(name string, command Command) {
	r.commands[name] = command
}

// Lookup returns the command registered under name
func (r *CommandRegistry) Lookup(name string) (Command, bool) {
	command, ok := r.commands[name]
	return command, ok
}

// Execute runs the specified command with the given arguments
func (r *CommandRegistry) Execute(ctx context.Context, commandName string, args []string) error {
	command, exists := r.commands[commandName]
	if !exists {
		return errors.NewInvalidInputError("command", commandName, "unknown command")
	}
	return command.Execute(ctx, args)
}

// GetUsage returns the usage string for the timer commands
func (r *CommandRegistry) GetUsage() string {
	return "usage: ow timer create <name> | list | show <id> | pause <id> | resume <id> | skip <id> | reset <id> | delete <id> | adjust <id> <±duration> | configure <id> | watch <id>"
}
