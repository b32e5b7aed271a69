package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Server.HTTPTimeout)
	assert.Equal(t, DefaultNamespace, cfg.Storage.Namespace)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  base_url: https://gen.example.com/
  http_timeout: 5s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))
	t.Setenv("CHATDEV_HANDSHAKE_TIMEOUT", "2s")
	t.Setenv("CHATDEV_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "https://gen.example.com", cfg.Server.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 5*time.Second, cfg.Server.HTTPTimeout)
	assert.Equal(t, 2*time.Second, cfg.Server.HandshakeTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level, "env overrides file")
	assert.Equal(t, filepath.Join(dir, StateFileName), cfg.StoragePath())
}

func TestLoadFromDotEnv(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("CHATDEV_BACKEND_URL=http://10.0.0.7:9000\n"), 0600))
	t.Setenv("CHATDEV_BACKEND_URL", "")
	os.Unsetenv("CHATDEV_BACKEND_URL")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7:9000", cfg.Server.BaseURL)
}

func TestValidateRejectsBadBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "ftp://example.com"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidBaseURL))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatdev", "config.yaml")

	cfg := DefaultConfig()
	cfg.path = path
	cfg.Server.BaseURL = "https://saved.example.com"
	require.NoError(t, cfg.Save())

	t.Chdir(t.TempDir())
	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com", loaded.Server.BaseURL)
	assert.Equal(t, filepath.Dir(path), loaded.Dir())
}

func TestCatalog(t *testing.T) {
	assert.Equal(t, []string{"openai", "gemini"}, Providers())

	m, ok := LookupModel("openai", "GPT_4O")
	require.True(t, ok)
	assert.Equal(t, "GPT-4o", m.Name)

	_, ok = LookupModel("gemini", "GPT_4O")
	assert.False(t, ok)

	require.NoError(t, DefaultSelection().Validate())

	err := ModelSelection{Provider: "anthropic", Model: "claude"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.Contains(t, err.Error(), "anthropic/claude")
}
