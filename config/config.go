// Package config holds runtime configuration for DXLander.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/compose-spec/compose-go/v2/dotenv"
)

const (
	ProjectsDir = "projects"
	BuildsDir   = "builds"
	TmpDir      = "tmp"
)

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *DefaultEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// GetDefaultDataDir returns the default DXLander data directory following XDG Base Directory specification
func GetDefaultDataDir() string {
	return getDefaultDataDirWithEnv(&DefaultEnvProvider{})
}

// getDefaultDataDirWithEnv allows dependency injection for testing
func getDefaultDataDirWithEnv(env EnvProvider) string {
	// Use XDG_DATA_HOME if set, otherwise fallback to ~/.local/share
	xdgDataHome := env.Getenv("XDG_DATA_HOME")
	if xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "dxlander")
	}

	homeDir, _ := env.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "dxlander")
}

// Config holds configuration for all services
type Config struct {
	// Core paths
	DataDir      string
	DatabasePath string
	TmpDir       string
	BuildsDir    string
	WorkspaceDir string

	// Logging
	LogLevel     string
	ColorEnabled bool

	// Docker
	DockerHost    string
	DockerCommand string

	// HTTP server
	HTTPHost string
	HTTPPort int

	// Git
	GitTimeout time.Duration

	// Status watcher
	PollInterval time.Duration

	// Encryption
	EncryptionKey string

	// Environment provider for testing
	env EnvProvider
}

// NewConfigForCLI creates a new configuration for CLI usage with optional data directory override
func NewConfigForCLI(cliDataDir string) (*Config, error) {
	return newConfigWithEnv(&DefaultEnvProvider{}, cliDataDir)
}

// NewConfigForCLIWithEnv creates a new configuration with custom environment provider (for testing)
func NewConfigForCLIWithEnv(env EnvProvider, cliDataDir string) (*Config, error) {
	return newConfigWithEnv(env, cliDataDir)
}

func newConfigWithEnv(env EnvProvider, cliDataDir string) (*Config, error) {
	c := &Config{env: env}

	// Set defaults first
	c.setDefaults()

	// Override with environment variables
	c.loadFromEnv()

	// Override with CLI flags (if provided)
	if cliDataDir != "" {
		c.DataDir = cliDataDir
	}

	// Derive dependent paths
	c.derivePaths()

	// Try to read encryption key from .env file as fallback (after data dir is finalized)
	if c.EncryptionKey == "" {
		if key := c.readEncryptionKeyFromEnvFile(); key != "" {
			c.EncryptionKey = key
		}
	}

	// Validate
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// NewConfigForServer creates a new configuration for server usage.
// This version only uses environment variables and defaults, no CLI overrides.
func NewConfigForServer() (*Config, error) {
	return NewConfigForServerWithEnv(&DefaultEnvProvider{})
}

// NewConfigForServerWithEnv creates a new configuration with custom environment provider (for testing)
func NewConfigForServerWithEnv(env EnvProvider) (*Config, error) {
	c := &Config{env: env}

	c.setDefaults()
	c.loadFromEnv()
	c.derivePaths()

	if c.EncryptionKey == "" {
		if key := c.readEncryptionKeyFromEnvFile(); key != "" {
			c.EncryptionKey = key
		}
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// setDefaults sets sensible default values
func (c *Config) setDefaults() {
	c.DataDir = getDefaultDataDirWithEnv(c.env)
	c.LogLevel = "info"
	c.ColorEnabled = true
	c.DockerHost = "unix:///var/run/docker.sock"
	c.DockerCommand = "docker"
	c.HTTPHost = "127.0.0.1"
	c.HTTPPort = 8080
	c.GitTimeout = 5 * time.Minute
	c.PollInterval = 1 * time.Minute
	// Don't set default encryption key - it must be provided explicitly
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if v := c.env.Getenv("DXLANDER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := c.env.Getenv("DXLANDER_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := c.env.Getenv("DXLANDER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := c.env.Getenv("DXLANDER_COLOR_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.ColorEnabled = enabled
		}
	}
	if v := c.env.Getenv("DXLANDER_DOCKER_HOST"); v != "" {
		c.DockerHost = v
	}
	if v := c.env.Getenv("DXLANDER_DOCKER_COMMAND"); v != "" {
		c.DockerCommand = v
	}
	if v := c.env.Getenv("DXLANDER_HTTP_HOST"); v != "" {
		c.HTTPHost = v
	}
	if v := c.env.Getenv("DXLANDER_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = port
		}
	}
	if v := c.env.Getenv("DXLANDER_GIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GitTimeout = d
		}
	}
	if v := c.env.Getenv("DXLANDER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PollInterval = d
		}
	}
	if v := c.env.Getenv("DXLANDER_ENCRYPTION_KEY"); v != "" {
		c.EncryptionKey = v
	}
}

// readEncryptionKeyFromEnvFile attempts to read DXLANDER_ENCRYPTION_KEY from .env file in data directory
func (c *Config) readEncryptionKeyFromEnvFile() string {
	envFile := filepath.Join(c.DataDir, ".env")

	envVars, err := dotenv.Read(envFile)
	if err != nil {
		// .env file doesn't exist or can't be read, that's okay
		return ""
	}

	return envVars["DXLANDER_ENCRYPTION_KEY"]
}

// derivePaths calculates dependent paths from the base DataDir
func (c *Config) derivePaths() {
	c.TmpDir = filepath.Join(c.DataDir, TmpDir)
	c.BuildsDir = filepath.Join(c.DataDir, BuildsDir)
	c.WorkspaceDir = filepath.Join(c.DataDir, ProjectsDir)

	// Set default database path if not explicitly configured
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "dxlander.db")
	}
}

// validate ensures configuration values are valid
func (c *Config) validate() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warning": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warning, or error)", c.LogLevel)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.GitTimeout <= 0 {
		return fmt.Errorf("git timeout must be positive, got: %v", c.GitTimeout)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got: %v", c.PollInterval)
	}

	if c.DockerCommand == "" {
		return fmt.Errorf("docker command cannot be empty")
	}

	// Require encryption key to be provided via environment variable or .env file
	if c.EncryptionKey == "" {
		return fmt.Errorf(
			"encryption key is required - set DXLANDER_ENCRYPTION_KEY environment variable or ensure .env file exists in data directory (%s)",
			c.DataDir,
		)
	}

	return nil
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() string {
	return c.LogLevel
}
