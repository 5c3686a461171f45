// Package config loads application configuration from flags, MEMORA_*
// environment variables, <data_dir>/config.yaml and defaults, in that order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MEMORA_LOG_LEVEL.
const EnvPrefix = "MEMORA"

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
)

// Keys.
const (
	KeyEnv                = "env"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
	KeyDataDir            = "data_dir"
	KeyUserID             = "user.id"
	KeyRemoteBaseURL      = "remote.base_url"
	KeyRemoteUserID       = "remote.user_id"
	KeyRemoteTimeout      = "remote.timeout"
	KeyRemoteRateLimit    = "remote.rate_limit"
	KeyRemoteBurst        = "remote.burst"
	KeyBreakerMaxFailures = "remote.breaker.max_failures"
	KeyBreakerTimeout     = "remote.breaker.timeout"
	KeyServerPort         = "server.port"
	KeyServerReadTimeout  = "server.read_timeout"
	KeyServerWriteTimeout = "server.write_timeout"
	KeyServerIdleTimeout  = "server.idle_timeout"
	KeyServerCORSOrigins  = "server.cors_origins"
	KeyMissingCredentials = "migration.missing_credentials"
	KeyPlaceholderSecret  = "migration.placeholder_secret"
)

const defaultMissingCredential = "reject"

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Memora configuration
# Every key can be overridden with a MEMORA_* environment variable
# (dots become underscores) or the matching command-line flag.

env: development

log:
  level: info
  # format: pretty | json (defaults to json in production)

# Acting user for standalone-mode commands.
# user:
#   id: usr_...

remote:
  # base_url: https://memora.example.com
  timeout: 30s
  rate_limit: 20
  burst: 10
  breaker:
    max_failures: 5
    timeout: 30s

server:
  port: "8080"

migration:
  # reject | force-reset | placeholder
  missing_credentials: reject
`

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	DataDir   string
	User      UserConfig
	Remote    RemoteConfig
	Server    ServerConfig
	Migration MigrationConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// UserConfig identifies the acting user of local commands.
type UserConfig struct {
	ID string
}

// RemoteConfig configures the remote content gateway.
type RemoteConfig struct {
	BaseURL   string
	UserID    string // defaults to User.ID
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Breaker   BreakerConfig
}

// BreakerConfig configures the remote circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// ServerConfig holds normal-mode server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// MigrationConfig holds migration defaults.
type MigrationConfig struct {
	MissingCredentials string // reject, force-reset or placeholder
	PlaceholderSecret  string
}

// New returns a viper instance with defaults and MEMORA_* environment
// binding. Flags are bound by the caller with BindPFlag.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "")
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyUserID, "")
	v.SetDefault(KeyRemoteBaseURL, "")
	v.SetDefault(KeyRemoteUserID, "")
	v.SetDefault(KeyRemoteTimeout, 30*time.Second)
	v.SetDefault(KeyRemoteRateLimit, 20.0)
	v.SetDefault(KeyRemoteBurst, 10)
	v.SetDefault(KeyBreakerMaxFailures, 5)
	v.SetDefault(KeyBreakerTimeout, 30*time.Second)
	v.SetDefault(KeyServerPort, "8080")
	v.SetDefault(KeyServerReadTimeout, 15*time.Second)
	v.SetDefault(KeyServerWriteTimeout, 60*time.Second)
	v.SetDefault(KeyServerIdleTimeout, 60*time.Second)
	v.SetDefault(KeyServerCORSOrigins, []string{})
	v.SetDefault(KeyMissingCredentials, defaultMissingCredential)
	v.SetDefault(KeyPlaceholderSecret, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load resolves the data directory, reads <data_dir>/config.yaml (creating
// it with defaults on first run) and returns the validated configuration.
// data_dir itself is taken from flags, environment or the default, since the
// config file lives inside it.
func Load(v *viper.Viper) (*Config, error) {
	dataDir, err := expandDataDir(v.GetString(KeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	if err := readConfigFile(v, dataDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: v.GetString(KeyEnv),
		},
		Logger: LoggerConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		DataDir: dataDir,
		User: UserConfig{
			ID: v.GetString(KeyUserID),
		},
		Remote: RemoteConfig{
			BaseURL:   strings.TrimSpace(v.GetString(KeyRemoteBaseURL)),
			UserID:    v.GetString(KeyRemoteUserID),
			Timeout:   v.GetDuration(KeyRemoteTimeout),
			RateLimit: v.GetFloat64(KeyRemoteRateLimit),
			Burst:     v.GetInt(KeyRemoteBurst),
			Breaker: BreakerConfig{
				MaxFailures: v.GetUint32(KeyBreakerMaxFailures),
				Timeout:     v.GetDuration(KeyBreakerTimeout),
			},
		},
		Server: ServerConfig{
			Port:         v.GetString(KeyServerPort),
			ReadTimeout:  v.GetDuration(KeyServerReadTimeout),
			WriteTimeout: v.GetDuration(KeyServerWriteTimeout),
			IdleTimeout:  v.GetDuration(KeyServerIdleTimeout),
			CORSOrigins:  v.GetStringSlice(KeyServerCORSOrigins),
		},
		Migration: MigrationConfig{
			MissingCredentials: v.GetString(KeyMissingCredentials),
			PlaceholderSecret:  v.GetString(KeyPlaceholderSecret),
		},
	}
	if cfg.Remote.UserID == "" {
		cfg.Remote.UserID = cfg.User.ID
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "pretty", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be pretty or json)", c.Logger.Format)
	}

	if c.DataDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid remote base url: %q (must be an absolute http or https URL)", c.Remote.BaseURL)
		}
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("invalid remote timeout: %s", c.Remote.Timeout)
	}

	switch c.Migration.MissingCredentials {
	case "reject", "force-reset":
	case "placeholder":
		if c.Migration.PlaceholderSecret == "" {
			return errors.New("migration.placeholder_secret is required with the placeholder credential policy")
		}
	default:
		return fmt.Errorf("invalid credential policy: %q (must be reject, force-reset, or placeholder)", c.Migration.MissingCredentials)
	}

	return nil
}

// readConfigFile reads config.yaml from dataDir, creating the directory and
// a default file on first run.
func readConfigFile(v *viper.Viper, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dataDir); err != nil {
		return fmt.Errorf("ensure default config: %w", err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dataDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// ensureDefaultConfigFile writes the default config.yaml if none exists.
func ensureDefaultConfigFile(dataDir string) error {
	path := filepath.Join(dataDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// expandDataDir expands ~ and makes the path absolute, defaulting to
// ~/.memora.
func expandDataDir(path string) (string, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, ".memora"), nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}
	return filepath.Clean(path), nil
}
