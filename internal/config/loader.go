package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"chatdev/internal/fileutil"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment overrides (CHATDEV_BACKEND_URL, ...).
const envPrefix = "chatdev"

// envOverrides lists the settings that can be changed from the environment.
type envOverrides struct {
	BackendURL       string        `envconfig:"BACKEND_URL"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT"`
	StoragePath      string        `envconfig:"STORAGE_PATH"`
	LogLevel         string        `envconfig:"LOG_LEVEL"`
}

// Load loads configuration from the default config file, a .env file in the
// working directory, and environment variables, in increasing priority.
func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFrom is Load with an explicit config file path. A missing file is not
// an error.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv exports variables from a .env file without overriding ones
// already set in the process environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func configDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "chatdev")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == "darwin" {
		appSupport := filepath.Join(homeDir, "Library", "Application Support", "chatdev")
		dotConfig := filepath.Join(homeDir, ".config", "chatdev")
		if _, err := os.Stat(dotConfig); err == nil {
			return dotConfig
		}
		return appSupport
	}

	return filepath.Join(homeDir, ".config", "chatdev")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies CHATDEV_* environment overrides.
func loadFromEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}

	if env.BackendURL != "" {
		cfg.Server.BaseURL = env.BackendURL
	}
	if env.HTTPTimeout > 0 {
		cfg.Server.HTTPTimeout = env.HTTPTimeout
	}
	if env.HandshakeTimeout > 0 {
		cfg.Server.HandshakeTimeout = env.HandshakeTimeout
	}
	if env.StoragePath != "" {
		cfg.Storage.Path = env.StoragePath
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	return nil
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Server.BaseURL)
	}

	if c.Server.HTTPTimeout <= 0 {
		c.Server.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Server.HandshakeTimeout <= 0 {
		c.Server.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = DefaultNamespace
	}
	return nil
}

// ConfigError is a sentinel configuration error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrInvalidBaseURL ConfigError = "invalid server base_url: expected an http(s) address, set CHATDEV_BACKEND_URL or server.base_url"
	ErrUnknownModel   ConfigError = "unknown model"
)

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return getConfigPath()
}

// Dir returns the directory holding the config file, logs and local state.
func (c *Config) Dir() string {
	if c.path != "" {
		return filepath.Dir(c.path)
	}
	return configDir()
}

// StoragePath returns the resolved key-value file path.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(c.Dir(), StateFileName)
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = getConfigPath()
	}
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.AtomicWrite(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	c.path = path
	return nil
}
