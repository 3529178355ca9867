package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/config"
	"overlay-widgets/internal/logging"
)

// Backend is the wired application behind the CLI
type Backend interface {
	API() api.BusinessAPI
	Serve(ctx context.Context) error
	Close() error
}

// BackendFactory builds a Backend from the resolved configuration
type BackendFactory func(ctx context.Context, cfg *config.Config) (Backend, error)

// RootCommand represents the base command when called without any subcommands
type RootCommand struct {
	cmd        *cobra.Command
	newBackend BackendFactory
	config     *config.Config
	backend    Backend
}

// NewRootCommand creates the root cobra command with global flags
func NewRootCommand(newBackend BackendFactory) *RootCommand {
	root := &RootCommand{
		newBackend: newBackend,
	}

	root.cmd = &cobra.Command{
		Use:   "ow",
		Short: "Pomodoro timers for stream overlays",
		Long: `Overlay Widgets (ow) runs pomodoro timers for streamer overlays.

Timers keep counting while nothing is watching them. Every read reconciles the
stored state to the current time, so an overlay that reconnects after hours
offline shows the right phase, remaining time and completed cycles.

FEATURES:
  • Work/break pomodoro timers with an optional cycle goal
  • Pause, resume, skip, reset, adjust and reconfigure while running
  • HTTP API and per-timer websocket streams for overlays
  • Optional NATS event bus for multi-instance deployments
  • SQLite (default) or PostgreSQL storage

EXAMPLES:
  ow serve                                     # Run the HTTP and websocket server
  ow timer create "Deep work" --work 50m --break 10m --goal 4
  ow timer list                                # List timers reconciled to now
  ow timer resume <id>                         # Start or continue counting
  ow timer adjust <id> +5m                     # Add five minutes to the phase
  ow timer adjust <id> -- -90s                 # Take ninety seconds off
  ow timer watch <id>                          # Live countdown in the terminal

CONFIGURATION:
  Configuration follows this priority order:
  command-line flags > environment variables (.env supported) > config file > defaults

  Database Configuration:
    OW_DB_DRIVER                               sqlite or postgres (default: sqlite)
    OW_DB_DIR                                  Database directory (default: ~/.ow)
    OW_DB_FILENAME                             Database filename (default: ow.db)
    OW_DB_DSN                                  PostgreSQL connection string
    OW_DB_QUERY_TIMEOUT                        Query timeout (default: 10s)
    OW_DB_WRITE_TIMEOUT                        Write timeout (default: 5s)

  Timer Configuration:
    OW_TIMER_WORK                              Default work duration (default: 25m)
    OW_TIMER_BREAK                             Default break duration (default: 5m)
    OW_TIMER_GOAL                              Default cycle goal (default: 0, none)

  Server Configuration:
    OW_SERVER_ADDR                             Listen address (default: :8080)
    OW_SERVER_ALLOWED_ORIGINS                  Comma separated CORS origins (default: *)
    OW_RECONCILER_ENABLED                      Background reconciliation (default: true)
    OW_RECONCILER_INTERVAL                     Reconciliation interval (default: 5s)
    OW_RECONCILER_TIMEOUT                      Time limit for one reconciliation sweep (default: 30s)
    OW_NATS_URL                                NATS server URL (default: in process)

  Application Configuration:
    OW_CONFIG_FILE                             YAML configuration file
    OW_LOG_LEVEL                               Log level (default: info)
    OW_LOG_FORMAT                              console or json (default: console)
    OW_APP_TIMEOUT                             Command timeout (default: 60s)

GETTING HELP:
  ow [command] --help                          # Get help for any specific command
  ow completion bash                           # Generate bash completion script`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.loadConfig(cmd.Flags())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return root.closeBackend()
		},
	}

	root.addGlobalFlags()
	root.addSubcommands()

	return root
}

// Execute runs the root command
func (r *RootCommand) Execute() error {
	return r.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx as the base context of every
// subcommand. Cancelling ctx stops serve and watch.
func (r *RootCommand) ExecuteContext(ctx context.Context) error {
	err := r.cmd.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE is skipped when RunE fails
		_ = r.closeBackend()
	}
	return err
}

// SetArgs sets the arguments used instead of os.Args
func (r *RootCommand) SetArgs(args []string) {
	r.cmd.SetArgs(args)
}

// SetOutput redirects command output and errors
func (r *RootCommand) SetOutput(w io.Writer) {
	r.cmd.SetOut(w)
	r.cmd.SetErr(w)
}

// Config returns the configuration resolved for the last run
func (r *RootCommand) Config() *config.Config {
	return r.config
}

// addGlobalFlags adds global configuration flags
func (r *RootCommand) addGlobalFlags() {
	flags := r.cmd.PersistentFlags()

	flags.String("config", "", "YAML configuration file (overrides OW_CONFIG_FILE)")

	// Database configuration
	flags.String("db-driver", "", "Database driver: sqlite or postgres (overrides OW_DB_DRIVER)")
	flags.String("db-dir", "", "Database directory (overrides OW_DB_DIR)")
	flags.String("db-filename", "", "Database filename (overrides OW_DB_FILENAME)")
	flags.String("db-dsn", "", "PostgreSQL connection string (overrides OW_DB_DSN)")
	flags.Duration("db-query-timeout", 0, "Database query timeout (overrides OW_DB_QUERY_TIMEOUT)")
	flags.Duration("db-write-timeout", 0, "Database write timeout (overrides OW_DB_WRITE_TIMEOUT)")

	// Server configuration
	flags.String("addr", "", "HTTP listen address (overrides OW_SERVER_ADDR)")
	flags.Bool("reconciler", true, "Run background reconciliation (overrides OW_RECONCILER_ENABLED)")
	flags.Duration("reconcile-interval", 0, "Background reconciliation interval (overrides OW_RECONCILER_INTERVAL)")
	flags.Duration("reconcile-timeout", 0, "Time limit for one reconciliation sweep (overrides OW_RECONCILER_TIMEOUT)")
	flags.String("nats-url", "", "NATS server URL (overrides OW_NATS_URL)")

	// Logging configuration
	flags.String("log-level", "", "Log level (overrides OW_LOG_LEVEL)")
	flags.String("log-format", "", "Log format: console or json (overrides OW_LOG_FORMAT)")

	// Display configuration
	flags.Duration("poll-interval", 0, "Watch refresh interval (overrides OW_DISPLAY_POLL_INTERVAL)")

	// Application configuration
	flags.Duration("app-timeout", 0, "Application timeout (overrides OW_APP_TIMEOUT)")
	flags.Bool("verbose", false, "Enable verbose output (overrides OW_APP_VERBOSE)")
}

// overridesFromFlags collects the flags the user actually set
func overridesFromFlags(flags *pflag.FlagSet) *config.ConfigOverrides {
	overrides := &config.ConfigOverrides{}

	stringFlag := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	durationFlag := func(name string) *time.Duration {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetDuration(name)
		return &v
	}
	boolFlag := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}

	overrides.ConfigFile = stringFlag("config")
	overrides.DBDriver = stringFlag("db-driver")
	overrides.DBDir = stringFlag("db-dir")
	overrides.DBFilename = stringFlag("db-filename")
	overrides.DBDSN = stringFlag("db-dsn")
	overrides.DBQueryTimeout = durationFlag("db-query-timeout")
	overrides.DBWriteTimeout = durationFlag("db-write-timeout")
	overrides.ServerAddr = stringFlag("addr")
	overrides.ReconcilerEnabled = boolFlag("reconciler")
	overrides.ReconcilerInterval = durationFlag("reconcile-interval")
	overrides.ReconcilerTimeout = durationFlag("reconcile-timeout")
	overrides.NATSURL = stringFlag("nats-url")
	overrides.LogLevel = stringFlag("log-level")
	overrides.LogFormat = stringFlag("log-format")
	overrides.PollInterval = durationFlag("poll-interval")
	overrides.Timeout = durationFlag("app-timeout")
	overrides.Verbose = boolFlag("verbose")

	return overrides
}

// loadConfig resolves configuration from every source and sets up logging
func (r *RootCommand) loadConfig(flags *pflag.FlagSet) error {
	cfg, err := config.NewLoader().LoadWithOverrides(overridesFromFlags(flags))
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if cfg.Application.Verbose {
		level = "debug"
	}
	if err := logging.Setup(level, cfg.Logging.Format, os.Stderr); err != nil {
		return err
	}

	logging.Debugf("config: driver=%s addr=%s reconciler=%t nats=%q\n",
		cfg.Database.Driver, cfg.Server.Addr, cfg.Reconciler.Enabled, cfg.Events.NATSURL)

	r.config = cfg
	return nil
}

// getBackend builds the backend on first use so help and completion never
// touch storage
func (r *RootCommand) getBackend(ctx context.Context) (Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}
	if r.config == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	backend, err := r.newBackend(ctx, r.config)
	if err != nil {
		return nil, err
	}
	r.backend = backend
	return backend, nil
}

func (r *RootCommand) closeBackend() error {
	if r.backend == nil {
		return nil
	}
	err := r.backend.Close()
	r.backend = nil
	return err
}

// newApp builds the CLI application over the backend
func (r *RootCommand) newApp(cmd *cobra.Command) (*App, error) {
	backend, err := r.getBackend(cmd.Context())
	if err != nil {
		return nil, err
	}
	return NewApp(backend.API(), r.config, cmd.OutOrStdout()), nil
}

// getAppTimeout returns the configured application timeout
func (r *RootCommand) getAppTimeout() time.Duration {
	if r.config != nil && r.config.Application.Timeout > 0 {
		return r.config.Application.Timeout
	}
	return 60 * time.Second
}

// runRegistered runs a registry command under the application timeout
func (r *RootCommand) runRegistered(name string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := r.newApp(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), r.getAppTimeout())
		defer cancel()

		return app.Run(ctx, append([]string{name}, args...))
	}
}

// settingsFromFlags reads --work, --break and --goal
func settingsFromFlags(flags *pflag.FlagSet) api.TimerSettingsInput {
	var input api.TimerSettingsInput
	input.WorkDuration, _ = flags.GetDuration("work")
	input.BreakDuration, _ = flags.GetDuration("break")
	if flags.Changed("goal") {
		goal, _ := flags.GetInt("goal")
		input.CycleGoal = &goal
	}
	return input
}

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("work", 0, "Work phase duration, e.g. 25m")
	cmd.Flags().Duration("break", 0, "Break phase duration, e.g. 5m")
	cmd.Flags().Int("goal", 0, "Cycle goal, 0 for none")
}

// addSubcommands adds all CLI subcommands to the root command
func (r *RootCommand) addSubcommands() {
	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and overlay websocket server",
		Long: `Run the HTTP API and websocket gateway. Overlays connect to
/ws/timers/{id} and receive a snapshot followed by every change to the timer.
The background reconciler keeps running timers current between requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := r.getBackend(cmd.Context())
			if err != nil {
				return err
			}
			return NewServeCommand(backend).Execute(cmd.Context(), args)
		},
	}

	timerCmd := &cobra.Command{
		Use:   "timer",
		Short: "Manage pomodoro timers",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a paused timer",
		Long: `Create a timer in the paused working phase. Durations and goal default to
OW_TIMER_WORK, OW_TIMER_BREAK and OW_TIMER_GOAL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.newApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), r.getAppTimeout())
			defer cancel()

			return NewCreateCommand(app, settingsFromFlags(cmd.Flags())).Execute(ctx, args)
		},
	}
	addSettingsFlags(createCmd)

	configureCmd := &cobra.Command{
		Use:   "configure [id]",
		Short: "Change durations or goal of a timer",
		Long: `Change the work duration, break duration or cycle goal of a timer. Elapsed
time is settled under the old durations first, then the remaining time is
clamped to the new phase length.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.newApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), r.getAppTimeout())
			defer cancel()

			return NewConfigureCommand(app, settingsFromFlags(cmd.Flags())).Execute(ctx, args)
		},
	}
	addSettingsFlags(configureCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List timers reconciled to now",
		Args:  cobra.NoArgs,
		RunE:  r.runRegistered("list"),
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one timer",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runRegistered("show"),
	}

	pauseCmd := &cobra.Command{
		Use:   "pause [id]",
		Short: "Pause a timer",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runRegistered("pause"),
	}

	resumeCmd := &cobra.Command{
		Use:   "resume [id]",
		Short: "Start or continue a timer",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runRegistered("resume"),
	}

	skipCmd := &cobra.Command{
		Use:   "skip [id]",
		Short: "Jump to the next phase without counting a cycle",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runRegistered("skip"),
	}

	resetCmd := &cobra.Command{
		Use:   "reset [id]",
		Short: "Return a timer to a paused first work phase",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runRegistered("reset"),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a timer",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runRegistered("delete"),
	}

	adjustCmd := &cobra.Command{
		Use:   "adjust [id] [±duration]",
		Short: "Add or remove time from the current phase",
		Long: `Add time to the current phase, or remove it with a negative duration.
The result is clamped between zero and the phase length.

Examples:
  ow timer adjust <id> +5m
  ow timer adjust <id> -- -90s`,
		Args: cobra.ExactArgs(2),
		RunE: r.runRegistered("adjust"),
	}

	watchCmd := &cobra.Command{
		Use:   "watch [id]",
		Short: "Show a live countdown",
		Long: `Show a live countdown that refreshes every poll interval.
Keys: space pauses or resumes, s skips, r resets, q quits.
When output is not a terminal the current state is printed once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Interactive: runs until the user quits
			app, err := r.newApp(cmd)
			if err != nil {
				return err
			}
			return NewWatchCommand(app).Execute(cmd.Context(), args)
		},
	}

	timerCmd.AddCommand(
		createCmd,
		listCmd,
		showCmd,
		pauseCmd,
		resumeCmd,
		skipCmd,
		resetCmd,
		deleteCmd,
		adjustCmd,
		configureCmd,
		watchCmd,
	)

	r.cmd.AddCommand(serveCmd, timerCmd)
}
