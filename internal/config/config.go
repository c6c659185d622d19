package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericfitz/storefront/internal/slogging"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port" env:"STOREFRONT_SERVER_PORT"`
	Interface       string        `yaml:"interface" env:"STOREFRONT_SERVER_INTERFACE"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"STOREFRONT_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"STOREFRONT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"STOREFRONT_SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"STOREFRONT_SERVER_SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"STOREFRONT_SERVER_MAX_BODY_BYTES"`
	TrustedProxies  []string      `yaml:"trusted_proxies,omitempty" env:"STOREFRONT_SERVER_TRUSTED_PROXIES"`
}

// AuthConfig holds token and password hashing configuration
type AuthConfig struct {
	Enabled bool      `yaml:"enabled" env:"STOREFRONT_AUTH_ENABLED"`
	JWT     JWTConfig `yaml:"jwt"`
	// BcryptCost of 0 selects the bcrypt default
	BcryptCost int `yaml:"bcrypt_cost" env:"STOREFRONT_AUTH_BCRYPT_COST"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret                   string `yaml:"secret" env:"STOREFRONT_JWT_SECRET"`
	Issuer                   string `yaml:"issuer" env:"STOREFRONT_JWT_ISSUER"`
	AccessExpirationSeconds  int    `yaml:"access_expiration_seconds" env:"STOREFRONT_JWT_ACCESS_EXPIRATION_SECONDS"`
	RefreshExpirationSeconds int    `yaml:"refresh_expiration_seconds" env:"STOREFRONT_JWT_REFRESH_EXPIRATION_SECONDS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level" env:"STOREFRONT_LOGGING_LEVEL"`
	IsDev            bool   `yaml:"is_dev" env:"STOREFRONT_LOGGING_IS_DEV"`
	IsTest           bool   `yaml:"is_test" env:"STOREFRONT_LOGGING_IS_TEST"`
	LogDir           string `yaml:"log_dir" env:"STOREFRONT_LOGGING_LOG_DIR"`
	MaxAgeDays       int    `yaml:"max_age_days" env:"STOREFRONT_LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB        int    `yaml:"max_size_mb" env:"STOREFRONT_LOGGING_MAX_SIZE_MB"`
	MaxBackups       int    `yaml:"max_backups" env:"STOREFRONT_LOGGING_MAX_BACKUPS"`
	AlsoLogToConsole bool   `yaml:"also_log_to_console" env:"STOREFRONT_LOGGING_ALSO_LOG_TO_CONSOLE"`
	RedactSecrets    bool   `yaml:"redact_secrets" env:"STOREFRONT_LOGGING_REDACT_SECRETS"`
}

// TelemetryConfig holds metrics and tracing configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" env:"STOREFRONT_TELEMETRY_SERVICE_NAME"`
	ServiceVersion string `yaml:"service_version" env:"STOREFRONT_TELEMETRY_SERVICE_VERSION"`
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"STOREFRONT_TELEMETRY_METRICS_ENABLED"`
	ConsoleTracing bool   `yaml:"console_tracing" env:"STOREFRONT_TELEMETRY_CONSOLE_TRACING"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load(configFile string) (*Config, error) {
	config := getDefaultConfig()

	if configFile != "" {
		if err := loadFromYAML(config, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from YAML: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, fmt.Errorf("failed to override with environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// getDefaultConfig returns a configuration with default values
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Interface:       "0.0.0.0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Auth: AuthConfig{
			Enabled: false,
			JWT: JWTConfig{
				Issuer:                   "storefront",
				AccessExpirationSeconds:  900,
				RefreshExpirationSeconds: 7 * 24 * 3600,
			},
		},
		Logging: LoggingConfig{
			Level:            "info",
			IsDev:            true,
			LogDir:           "logs",
			MaxAgeDays:       7,
			MaxSizeMB:        100,
			MaxBackups:       10,
			AlsoLogToConsole: true,
			RedactSecrets:    true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "storefront",
			ServiceVersion: "dev",
			MetricsEnabled: true,
		},
	}
}

// loadFromYAML loads configuration from a YAML file
func loadFromYAML(config *Config, filename string) error {
	data, err := os.ReadFile(filename) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// overrideWithEnv overrides configuration values with environment variables
func overrideWithEnv(config *Config) error {
	return overrideStructWithEnv(reflect.ValueOf(config).Elem())
}

// overrideStructWithEnv recursively overrides struct fields with environment variables
func overrideStructWithEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := overrideStructWithEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldFromString(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromString sets a struct field value from a string based on the field type
func setFieldFromString(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value: %s", value)
		}
		field.SetBool(boolVal)
	case reflect.Int:
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int value: %s", value)
		}
		field.SetInt(int64(intVal))
	case reflect.Int64:
		// time.Duration is an int64 underneath
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", value)
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int64 value: %s", value)
			}
			field.SetInt(intVal)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				slice = append(slice, trimmed)
			}
		}
		field.Set(reflect.ValueOf(slice))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry service name is required")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server port must be a number between 1 and 65535, got %q", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max body bytes must be greater than 0")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid trusted proxy %q", proxy)
			}
		}
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !c.Auth.Enabled {
		return nil
	}
	if c.Auth.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required when auth is enabled")
	}
	if len(c.Auth.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if c.Auth.JWT.AccessExpirationSeconds <= 0 {
		return fmt.Errorf("jwt access expiration must be greater than 0")
	}
	if c.Auth.JWT.RefreshExpirationSeconds < c.Auth.JWT.AccessExpirationSeconds {
		return fmt.Errorf("jwt refresh expiration must not be shorter than access expiration")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
}

// IsTestMode returns true if running in test mode
func (c *Config) IsTestMode() bool {
	return c.Logging.IsTest || isRunningInTest()
}

// isRunningInTest detects if we're running under 'go test'
func isRunningInTest() bool {
	return flag.Lookup("test.v") != nil
}

// ListenAddress returns the interface:port pair for the HTTP listener
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Interface, c.Server.Port)
}

// GetAccessTTL returns the access token lifetime
func (c *Config) GetAccessTTL() time.Duration {
	return time.Duration(c.Auth.JWT.AccessExpirationSeconds) * time.Second
}

// GetRefreshTTL returns the refresh token lifetime
func (c *Config) GetRefreshTTL() time.Duration {
	return time.Duration(c.Auth.JWT.RefreshExpirationSeconds) * time.Second
}

// GetLogLevel returns the parsed log level
func (c *Config) GetLogLevel() slogging.LogLevel {
	return slogging.ParseLogLevel(c.Logging.Level)
}

// LoggerConfig maps the logging section onto a slogging.Config
func (c *Config) LoggerConfig() slogging.Config {
	cfg := slogging.Config{
		Level:            c.GetLogLevel(),
		IsDev:            c.Logging.IsDev,
		LogDir:           c.Logging.LogDir,
		MaxAgeDays:       c.Logging.MaxAgeDays,
		MaxSizeMB:        c.Logging.MaxSizeMB,
		MaxBackups:       c.Logging.MaxBackups,
		AlsoLogToConsole: c.Logging.AlsoLogToConsole,
	}
	if !c.Logging.RedactSecrets {
		cfg.RedactionConfig = &slogging.RedactionConfig{Enabled: false}
	}
	return cfg
}
