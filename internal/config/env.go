// Package config provides application configuration.
package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds the process-level environment configuration. The
// runtime-adjustable keys of §Settings are resolved separately so the
// settings file can overlay them; everything here is env-only.
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.intenthub
	DataDir string `envconfig:"DATA_DIR"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// AuthEnabled controls whether API authentication is enforced.
	// Env: AUTH_ENABLED (default: true)
	AuthEnabled bool `envconfig:"AUTH_ENABLED" default:"true"`

	// APIKeys is a comma-separated list of always-valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// Username is the admin login username.
	// Env: DEFAULT_USERNAME (default: admin)
	Username string `envconfig:"DEFAULT_USERNAME" default:"admin"`

	// Password is the admin login password.
	// Env: DEFAULT_PASSWORD (default: 123456)
	Password string `envconfig:"DEFAULT_PASSWORD" default:"123456"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	opts := []AppConfigOption{
		WithAuthEnabled(e.AuthEnabled),
		WithCredentials(e.Username, e.Password),
	}
	if e.Host != "" {
		opts = append(opts, WithHost(e.Host))
	}
	if e.Port != 0 {
		opts = append(opts, WithPort(e.Port))
	}
	if e.DataDir != "" {
		opts = append(opts, WithDataDir(e.DataDir))
	}
	if e.LogLevel != "" {
		opts = append(opts, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		opts = append(opts, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		opts = append(opts, WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}
	return NewAppConfigWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
