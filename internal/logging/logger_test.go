package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestConfigureWritesJSON(t *testing.T) {
	t.Cleanup(DisableLogging)

	var buf bytes.Buffer
	Configure(LevelWarn, &buf)

	Info("dropped")
	Warn("kept", "session_id", "s1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "s1", rec["session_id"])
}

func TestEnableFileLogging(t *testing.T) {
	t.Cleanup(DisableLogging)

	dir := filepath.Join(t.TempDir(), "nested")
	require.NoError(t, EnableFileLogging(dir, LevelDebug))

	Debug("hello")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
