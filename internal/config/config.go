// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 8080
	DefaultLogLevel = "INFO"

	DefaultUsername = "admin"
	DefaultPassword = "123456"

	RoutesFileName    = "routes_config.json"
	SettingsFileName  = "settings.json"
	EnvMirrorFileName = "settings.env"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// AppConfig holds the process-level configuration: server binding, data
// location, logging, and the admin auth surface. Keys that can change at
// runtime live in Settings / Runtime instead.
type AppConfig struct {
	host        string
	port        int
	dataDir     string
	logLevel    string
	logFormat   LogFormat
	authEnabled bool
	apiKeys     []string
	username    string
	password    string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".intenthub"
	}
	return filepath.Join(home, ".intenthub")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:        DefaultHost,
		port:        DefaultPort,
		dataDir:     DefaultDataDir(),
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		authEnabled: true,
		apiKeys:     []string{},
		username:    DefaultUsername,
		password:    DefaultPassword,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// AuthEnabled returns whether API authentication is enforced.
func (c AppConfig) AuthEnabled() bool { return c.authEnabled }

// APIKeys returns the statically configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// Username returns the admin login username.
func (c AppConfig) Username() string { return c.username }

// Password returns the admin login password.
func (c AppConfig) Password() string { return c.password }

// RoutesFile returns the route journal path inside the data directory.
func (c AppConfig) RoutesFile() string {
	return filepath.Join(c.dataDir, RoutesFileName)
}

// SettingsFile returns the settings overlay path inside the data directory.
func (c AppConfig) SettingsFile() string {
	return filepath.Join(c.dataDir, SettingsFileName)
}

// EnvMirrorFile returns the path of the exported env mirror of the
// last-saved settings.
func (c AppConfig) EnvMirrorFile() string {
	return filepath.Join(c.dataDir, EnvMirrorFileName)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.dataDir = dir }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAuthEnabled sets whether API authentication is enforced.
func WithAuthEnabled(enabled bool) AppConfigOption {
	return func(c *AppConfig) { c.authEnabled = enabled }
}

// WithAPIKeys sets the static API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithCredentials sets the admin login credentials.
func WithCredentials(username, password string) AppConfigOption {
	return func(c *AppConfig) {
		c.username = username
		c.password = password
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Secrets are shown as counts or omitted.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("log_format", string(c.logFormat)),
		slog.Bool("auth_enabled", c.authEnabled),
		slog.Int("api_keys_count", len(c.apiKeys)),
	}
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
