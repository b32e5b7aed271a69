package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "chatdev/model", Key("chatdev", "model"))
	assert.Equal(t, "chatdev/model", Key("/chatdev/", "model"))
	assert.Equal(t, "model", Key("", "model"))
}

func testStore(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("chatdev/credentials")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("chatdev/credentials", `{"version":1}`))
	require.NoError(t, s.Set("chatdev/model", "x"))
	require.NoError(t, s.Set("chatdev/model", "y"))

	v, ok, err := s.Get("chatdev/model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	assert.ErrorIs(t, s.Set("", "v"), ErrEmptyKey)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testStore(t, m)
	assert.Equal(t, 2, m.Len())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	testStore(t, NewFile(path))

	// A fresh instance sees what the first one wrote.
	reopened := NewFile(path)
	v, ok, err := reopened.Get("chatdev/credentials")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"version":1}`, v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0600))

	f := NewFile(path)
	_, _, err := f.Get("k")
	require.Error(t, err)

	require.NoError(t, f.Set("k", "v"))
	v, ok, err := NewFile(path).Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
