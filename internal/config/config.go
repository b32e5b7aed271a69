package config

import "time"

// Config represents the client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`

	// Runtime information, never persisted.
	Version string `yaml:"-"`
	path    string
}

// ServerConfig describes how to reach the generation service.
type ServerConfig struct {
	// REST base address; the realtime channel address is derived from it.
	BaseURL          string        `yaml:"base_url"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	UserAgent        string        `yaml:"user_agent,omitempty"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	// Path of the key-value file. Empty means <config dir>/state.yaml.
	Path      string `yaml:"path,omitempty"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug, info, warn, error
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	HighlightStyle    string `yaml:"highlight_style"`
	MarkdownStyle     string `yaml:"markdown_style"`
	PreviewOnComplete bool   `yaml:"preview_on_complete"`
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}
