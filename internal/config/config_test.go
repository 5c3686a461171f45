package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		DataDir: "/some/path",
		Remote:  RemoteConfig{Timeout: 30 * time.Second},
		Migration: MigrationConfig{
			MissingCredentials: "reject",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RemoteBaseURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"", true},
		{"https://memora.example.com", true},
		{"http://localhost:8080/base", true},
		{"memora.example.com", false},
		{"ftp://memora.example.com", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := validConfig()
			cfg.Remote.BaseURL = tt.url

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_CredentialPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		secret string
		valid  bool
	}{
		{"reject", "reject", "", true},
		{"force reset", "force-reset", "", true},
		{"placeholder with secret", "placeholder", "changeme", true},
		{"placeholder without secret", "placeholder", "", false},
		{"unknown", "drop", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Migration.MissingCredentials = tt.policy
			cfg.Migration.PlaceholderSecret = tt.secret

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad_DefaultsAndFirstRunFile(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "memora")
	t.Setenv("MEMORA_DATA_DIR", dataDir)

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 20.0, cfg.Remote.RateLimit)
	assert.Equal(t, 10, cfg.Remote.Burst)
	assert.Equal(t, uint32(5), cfg.Remote.Breaker.MaxFailures)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "reject", cfg.Migration.MissingCredentials)

	_, err = os.Stat(filepath.Join(dataDir, "config.yaml"))
	assert.NoError(t, err, "config.yaml is created on first run")
}

func TestLoad_Precedence(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(`
log:
  level: warn
remote:
  base_url: https://file.example.com
  timeout: 10s
user:
  id: usr_file
server:
  port: "9000"
`), 0o644))

	t.Setenv("MEMORA_DATA_DIR", dataDir)
	t.Setenv("MEMORA_LOG_LEVEL", "error")
	t.Setenv("MEMORA_REMOTE_BASE_URL", "https://env.example.com")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "", "")
	require.NoError(t, fs.Parse([]string{"--log-level=debug"}))

	v := New()
	require.NoError(t, v.BindPFlag(KeyLogLevel, fs.Lookup("log-level")))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level, "flag beats env and file")
	assert.Equal(t, "https://env.example.com", cfg.Remote.BaseURL, "env beats file")
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout, "file beats default")
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout, "default applies when nothing overrides")
	assert.Equal(t, "usr_file", cfg.Remote.UserID, "remote user falls back to the acting user")
}

func TestLoad_InvalidFileValue(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("env: testing\n"), 0o644))
	t.Setenv("MEMORA_DATA_DIR", dataDir)

	_, err := Load(New())
	assert.ErrorContains(t, err, "invalid environment")
}

func TestExpandDataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandDataDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".memora"), got)

	got, err = expandDataDir("~/notes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), got)

	got, err = expandDataDir("/var/lib/memora/../memora")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/memora", got)
}
