package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration options for the overlay widget service
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Timer       TimerConfig       `yaml:"timer"`
	Server      ServerConfig      `yaml:"server"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler"`
	Events      EventsConfig      `yaml:"events"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Logging     LoggingConfig     `yaml:"logging"`
	Display     DisplayConfig     `yaml:"display"`
	Application ApplicationConfig `yaml:"application"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver         string        `yaml:"driver" env:"OW_DB_DRIVER"`
	Dir            string        `yaml:"dir" env:"OW_DB_DIR"`
	Filename       string        `yaml:"filename" env:"OW_DB_FILENAME"`
	DSN            string        `yaml:"dsn" env:"OW_DB_DSN"`
	QueryTimeout   time.Duration `yaml:"query_timeout" env:"OW_DB_QUERY_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"OW_DB_WRITE_TIMEOUT"`
	DirPermissions uint32        `yaml:"dir_permissions" env:"OW_DB_DIR_PERMISSIONS"`
}

// TimerConfig holds timer defaults and input limits
type TimerConfig struct {
	DefaultWorkDuration  time.Duration `yaml:"default_work_duration" env:"OW_TIMER_WORK"`
	DefaultBreakDuration time.Duration `yaml:"default_break_duration" env:"OW_TIMER_BREAK"`
	DefaultCycleGoal     int           `yaml:"default_cycle_goal" env:"OW_TIMER_GOAL"`
	MinPhaseDuration     time.Duration `yaml:"min_phase_duration" env:"OW_TIMER_MIN_PHASE"`
	MaxPhaseDuration     time.Duration `yaml:"max_phase_duration" env:"OW_TIMER_MAX_PHASE"`
	MaxCycleGoal         int           `yaml:"max_cycle_goal" env:"OW_TIMER_MAX_GOAL"`
	NameMinLength        int           `yaml:"name_min_length" env:"OW_TIMER_NAME_MIN"`
	NameMaxLength        int           `yaml:"name_max_length" env:"OW_TIMER_NAME_MAX"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"OW_SERVER_ADDR"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"OW_SERVER_ALLOWED_ORIGINS"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"OW_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"OW_SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"OW_SERVER_SHUTDOWN_TIMEOUT"`
}

// ReconcilerConfig holds the scheduled reconciliation settings
type ReconcilerConfig struct {
	Enabled  bool          `yaml:"enabled" env:"OW_RECONCILER_ENABLED"`
	Interval time.Duration `yaml:"interval" env:"OW_RECONCILER_INTERVAL"`
	// Timeout bounds one sweep over every running timer
	Timeout time.Duration `yaml:"timeout" env:"OW_RECONCILER_TIMEOUT"`
}

// EventsConfig holds event bus configuration. An empty NATSURL keeps events
// in process.
type EventsConfig struct {
	NATSURL       string        `yaml:"nats_url" env:"OW_NATS_URL"`
	SubjectPrefix string        `yaml:"subject_prefix" env:"OW_EVENTS_SUBJECT_PREFIX"`
	MaxReconnects int           `yaml:"max_reconnects" env:"OW_NATS_MAX_RECONNECTS"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"OW_NATS_RECONNECT_WAIT"`
}

// GatewayConfig holds websocket keepalive and buffer settings
type GatewayConfig struct {
	PingPeriod     time.Duration `yaml:"ping_period" env:"OW_GATEWAY_PING_PERIOD"`
	PongWait       time.Duration `yaml:"pong_wait" env:"OW_GATEWAY_PONG_WAIT"`
	WriteWait      time.Duration `yaml:"write_wait" env:"OW_GATEWAY_WRITE_WAIT"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"OW_GATEWAY_MAX_MESSAGE_SIZE"`
	SendBuffer     int           `yaml:"send_buffer" env:"OW_GATEWAY_SEND_BUFFER"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"OW_LOG_LEVEL"`
	Format string `yaml:"format" env:"OW_LOG_FORMAT"`
}

// DisplayConfig holds terminal display configuration
type DisplayConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"OW_DISPLAY_POLL_INTERVAL"`
}

// ApplicationConfig holds application-level configuration
type ApplicationConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"OW_APP_TIMEOUT"`
	Verbose bool          `yaml:"verbose" env:"OW_APP_VERBOSE"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultDBDir := filepath.Join(homeDir, ".ow")

	return &Config{
		Database: DatabaseConfig{
			Driver:         DriverSQLite,
			Dir:            defaultDBDir,
			Filename:       "ow.db",
			QueryTimeout:   10 * time.Second,
			WriteTimeout:   5 * time.Second,
			DirPermissions: 0755,
		},
		Timer: TimerConfig{
			DefaultWorkDuration:  25 * time.Minute,
			DefaultBreakDuration: 5 * time.Minute,
			DefaultCycleGoal:     0,
			MinPhaseDuration:     time.Second,
			MaxPhaseDuration:     4 * time.Hour,
			MaxCycleGoal:         100,
			NameMinLength:        1,
			NameMaxLength:        64,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Reconciler: ReconcilerConfig{
			Enabled:  true,
			Interval: 5 * time.Second,
			Timeout:  30 * time.Second,
		},
		Events: EventsConfig{
			SubjectPrefix: "ow.timers",
			MaxReconnects: 10,
			ReconnectWait: 2 * time.Second,
		},
		Gateway: GatewayConfig{
			PingPeriod:     54 * time.Second,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
			MaxMessageSize: 512,
			SendBuffer:     32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Display: DisplayConfig{
			PollInterval: time.Second,
		},
		Application: ApplicationConfig{
			Timeout: 60 * time.Second,
			Verbose: false,
		},
	}
}

// GetDatabasePath returns the full path to the SQLite database file
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.Database.Dir, c.Database.Filename)
}

// GetQueryTimeout returns the database query timeout
func (c *Config) GetQueryTimeout() time.Duration {
	return c.Database.QueryTimeout
}

// GetWriteTimeout returns the database write timeout
func (c *Config) GetWriteTimeout() time.Duration {
	return c.Database.WriteTimeout
}

// LoadFromEnvironment loads configuration from environment variables.
// Unparseable values are ignored and the previous value kept.
func (c *Config) LoadFromEnvironment() error {
	// Database configuration
	envString("OW_DB_DRIVER", &c.Database.Driver)
	envString("OW_DB_DIR", &c.Database.Dir)
	envString("OW_DB_FILENAME", &c.Database.Filename)
	envString("OW_DB_DSN", &c.Database.DSN)
	envDuration("OW_DB_QUERY_TIMEOUT", &c.Database.QueryTimeout)
	envDuration("OW_DB_WRITE_TIMEOUT", &c.Database.WriteTimeout)
	if perms := os.Getenv("OW_DB_DIR_PERMISSIONS"); perms != "" {
		if p, err := strconv.ParseUint(perms, 8, 32); err == nil {
			c.Database.DirPermissions = uint32(p)
		}
	}

	// Timer configuration
	envDuration("OW_TIMER_WORK", &c.Timer.DefaultWorkDuration)
	envDuration("OW_TIMER_BREAK", &c.Timer.DefaultBreakDuration)
	envInt("OW_TIMER_GOAL", &c.Timer.DefaultCycleGoal)
	envDuration("OW_TIMER_MIN_PHASE", &c.Timer.MinPhaseDuration)
	envDuration("OW_TIMER_MAX_PHASE", &c.Timer.MaxPhaseDuration)
	envInt("OW_TIMER_MAX_GOAL", &c.Timer.MaxCycleGoal)
	envInt("OW_TIMER_NAME_MIN", &c.Timer.NameMinLength)
	envInt("OW_TIMER_NAME_MAX", &c.Timer.NameMaxLength)

	// Server configuration
	envString("OW_SERVER_ADDR", &c.Server.Addr)
	if origins := os.Getenv("OW_SERVER_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	envDuration("OW_SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	envDuration("OW_SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	envDuration("OW_SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	// Reconciler configuration
	envBool("OW_RECONCILER_ENABLED", &c.Reconciler.Enabled)
	envDuration("OW_RECONCILER_INTERVAL", &c.Reconciler.Interval)
	envDuration("OW_RECONCILER_TIMEOUT", &c.Reconciler.Timeout)

	// Events configuration
	envString("OW_NATS_URL", &c.Events.NATSURL)
	envString("OW_EVENTS_SUBJECT_PREFIX", &c.Events.SubjectPrefix)
	envInt("OW_NATS_MAX_RECONNECTS", &c.Events.MaxReconnects)
	envDuration("OW_NATS_RECONNECT_WAIT", &c.Events.ReconnectWait)

	// Gateway configuration
	envDuration("OW_GATEWAY_PING_PERIOD", &c.Gateway.PingPeriod)
	envDuration("OW_GATEWAY_PONG_WAIT", &c.Gateway.PongWait)
	envDuration("OW_GATEWAY_WRITE_WAIT", &c.Gateway.WriteWait)
	if size := os.Getenv("OW_GATEWAY_MAX_MESSAGE_SIZE"); size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil {
			c.Gateway.MaxMessageSize = n
		}
	}
	envInt("OW_GATEWAY_SEND_BUFFER", &c.Gateway.SendBuffer)

	// Logging configuration
	envString("OW_LOG_LEVEL", &c.Logging.Level)
	envString("OW_LOG_FORMAT", &c.Logging.Format)
	if debug := os.Getenv("OW_DEBUG"); debug != "" {
		if b, err := strconv.ParseBool(debug); err == nil && b {
			c.Logging.Level = "debug"
		}
	}

	// Display configuration
	envDuration("OW_DISPLAY_POLL_INTERVAL", &c.Display.PollInterval)

	// Application configuration
	envDuration("OW_APP_TIMEOUT", &c.Application.Timeout)
	envBool("OW_APP_VERBOSE", &c.Application.Verbose)

	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	// Validate database configuration
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Dir == "" {
			return &ConfigError{Field: "database.dir", Message: "database directory cannot be empty"}
		}
		if c.Database.Filename == "" {
			return &ConfigError{Field: "database.filename", Message: "database filename cannot be empty"}
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return &ConfigError{Field: "database.dsn", Message: "dsn is required for the postgres driver"}
		}
	default:
		return &ConfigError{Field: "database.driver", Message: "driver must be sqlite or postgres"}
	}
	if c.Database.QueryTimeout <= 0 {
		return &ConfigError{Field: "database.query_timeout", Message: "query timeout must be positive"}
	}
	if c.Database.WriteTimeout <= 0 {
		return &ConfigError{Field: "database.write_timeout", Message: "write timeout must be positive"}
	}

	// Validate timer configuration
	t := c.Timer
	if t.MinPhaseDuration <= 0 {
		return &ConfigError{Field: "timer.min_phase_duration", Message: "minimum phase duration must be positive"}
	}
	if t.MaxPhaseDuration < t.MinPhaseDuration {
		return &ConfigError{Field: "timer.max_phase_duration", Message: "maximum phase duration must not be less than minimum"}
	}
	if t.DefaultWorkDuration < t.MinPhaseDuration || t.DefaultWorkDuration > t.MaxPhaseDuration {
		return &ConfigError{Field: "timer.default_work_duration", Message: "default work duration must be within the phase duration limits"}
	}
	if t.DefaultBreakDuration < t.MinPhaseDuration || t.DefaultBreakDuration > t.MaxPhaseDuration {
		return &ConfigError{Field: "timer.default_break_duration", Message: "default break duration must be within the phase duration limits"}
	}
	if t.MaxCycleGoal < 0 {
		return &ConfigError{Field: "timer.max_cycle_goal", Message: "maximum cycle goal cannot be negative"}
	}
	if t.DefaultCycleGoal < 0 || t.DefaultCycleGoal > t.MaxCycleGoal {
		return &ConfigError{Field: "timer.default_cycle_goal", Message: "default cycle goal must be between 0 and the maximum"}
	}
	if t.NameMinLength < 1 {
		return &ConfigError{Field: "timer.name_min_length", Message: "timer name minimum length must be at least 1"}
	}
	if t.NameMaxLength < t.NameMinLength {
		return &ConfigError{Field: "timer.name_max_length", Message: "timer name maximum length must be greater than minimum length"}
	}

	// Validate server configuration
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "listen address cannot be empty"}
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return &ConfigError{Field: "server.timeouts", Message: "server timeouts must be positive"}
	}

	// Validate reconciler configuration
	if c.Reconciler.Enabled && c.Reconciler.Interval <= 0 {
		return &ConfigError{Field: "reconciler.interval", Message: "reconcile interval must be positive"}
	}
	if c.Reconciler.Enabled && c.Reconciler.Timeout <= 0 {
		return &ConfigError{Field: "reconciler.timeout", Message: "reconcile timeout must be positive"}
	}

	// Validate events configuration
	if c.Events.SubjectPrefix == "" {
		return &ConfigError{Field: "events.subject_prefix", Message: "subject prefix cannot be empty"}
	}
	if c.Events.ReconnectWait < 0 {
		return &ConfigError{Field: "events.reconnect_wait", Message: "reconnect wait cannot be negative"}
	}

	// Validate gateway configuration
	if c.Gateway.PingPeriod <= 0 || c.Gateway.PongWait <= c.Gateway.PingPeriod {
		return &ConfigError{Field: "gateway.ping_period", Message: "ping period must be positive and shorter than pong wait"}
	}
	if c.Gateway.WriteWait <= 0 {
		return &ConfigError{Field: "gateway.write_wait", Message: "write wait must be positive"}
	}
	if c.Gateway.MaxMessageSize <= 0 {
		return &ConfigError{Field: "gateway.max_message_size", Message: "max message size must be positive"}
	}
	if c.Gateway.SendBuffer <= 0 {
		return &ConfigError{Field: "gateway.send_buffer", Message: "send buffer must be positive"}
	}

	// Validate logging configuration
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		return &ConfigError{Field: "logging.level", Message: "unknown log level " + strconv.Quote(c.Logging.Level)}
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return &ConfigError{Field: "logging.format", Message: "log format must be console or json"}
	}

	// Validate display configuration
	if c.Display.PollInterval <= 0 {
		return &ConfigError{Field: "display.poll_interval", Message: "poll interval must be positive"}
	}

	// Validate application configuration
	if c.Application.Timeout <= 0 {
		return &ConfigError{Field: "application.timeout", Message: "application timeout must be positive"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
