package config

import "time"

// Default configuration values.
const (
	DefaultBaseURL          = "http://localhost:8000"
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultNamespace        = "chatdev"
	DefaultLogLevel         = "info"
	DefaultHighlightStyle   = "monokai"
	DefaultMarkdownStyle    = "dark"

	// StateFileName is the default key-value file inside the config dir.
	StateFileName = "state.yaml"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:          DefaultBaseURL,
			HTTPTimeout:      DefaultHTTPTimeout,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		Storage: StorageConfig{
			Namespace: DefaultNamespace,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   DefaultLogLevel,
		},
		UI: UIConfig{
			HighlightStyle:    DefaultHighlightStyle,
			MarkdownStyle:     DefaultMarkdownStyle,
			PreviewOnComplete: true,
		},
	}
}
