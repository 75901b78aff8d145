// ABOUTME: Configuration loading and parsing for pbx-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pbx-gateway configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	ControlPlane ControlPlaneConfig `yaml:"controlplane"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// ControlPlaneConfig holds the PBX control-plane session configuration
type ControlPlaneConfig struct {
	URL         string          `yaml:"url"`
	Username    string          `yaml:"username"`
	Password    string          `yaml:"password"`
	Application string          `yaml:"application"`
	Reconnect   ReconnectConfig `yaml:"reconnect"`

	// OperationTimeout bounds every call-control command. Timeouts are
	// reported to callers as retryable, never retried internally.
	OperationTimeout    time.Duration `yaml:"-"`
	OperationTimeoutRaw string        `yaml:"operation_timeout"`
}

// ReconnectConfig shapes the backoff used when the control-plane
// session drops. MaxElapsedTime of zero retries forever.
type ReconnectConfig struct {
	InitialInterval time.Duration `yaml:"-"`
	MaxInterval     time.Duration `yaml:"-"`
	MaxElapsedTime  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	InitialIntervalRaw string `yaml:"initial_interval"`
	MaxIntervalRaw     string `yaml:"max_interval"`
	MaxElapsedTimeRaw  string `yaml:"max_elapsed_time"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults applied when the corresponding field is absent.
const (
	DefaultOperationTimeout = 3 * time.Second
	DefaultInitialInterval  = 500 * time.Millisecond
	DefaultMaxInterval      = 30 * time.Second
	DefaultMetricsPath      = "/metrics"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.ControlPlane.OperationTimeout == 0 {
		c.ControlPlane.OperationTimeout = DefaultOperationTimeout
	}
	if c.ControlPlane.Reconnect.InitialInterval == 0 {
		c.ControlPlane.Reconnect.InitialInterval = DefaultInitialInterval
	}
	if c.ControlPlane.Reconnect.MaxInterval == 0 {
		c.ControlPlane.Reconnect.MaxInterval = DefaultMaxInterval
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.ControlPlane.URL == "" {
		return fmt.Errorf("controlplane.url is required")
	}
	if c.ControlPlane.Application == "" {
		return fmt.Errorf("controlplane.application is required")
	}
	if c.ControlPlane.Username == "" {
		return fmt.Errorf("controlplane.username is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.ControlPlane.Reconnect.MaxElapsedTime < 0 {
		return fmt.Errorf("controlplane.reconnect.max_elapsed_time must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.ControlPlane.OperationTimeoutRaw, "operation_timeout", &cfg.ControlPlane.OperationTimeout},
		{cfg.ControlPlane.Reconnect.InitialIntervalRaw, "reconnect.initial_interval", &cfg.ControlPlane.Reconnect.InitialInterval},
		{cfg.ControlPlane.Reconnect.MaxIntervalRaw, "reconnect.max_interval", &cfg.ControlPlane.Reconnect.MaxInterval},
		{cfg.ControlPlane.Reconnect.MaxElapsedTimeRaw, "reconnect.max_elapsed_time", &cfg.ControlPlane.Reconnect.MaxElapsedTime},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
