package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatdev/internal/app"
	"chatdev/internal/config"
	"chatdev/internal/security"
	"chatdev/internal/session"
	"chatdev/internal/storage"
	"chatdev/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()

	n, err := writeFiles(dir, []session.File{
		{Name: "main.py", Path: "main.py", Content: "print('hi')\n"},
		{Name: "util.py", Path: "pkg/util.py", Content: "X = 1\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dir, "pkg", "util.py"))
	require.NoError(t, err)
	assert.Equal(t, "X = 1\n", string(data))
}

func TestWriteFilesRejectsTraversal(t *testing.T) {
	dir := t.TempDir()

	n, err := writeFiles(dir, []session.File{
		{Name: "ok.py", Path: "ok.py", Content: "ok"},
		{Name: "evil", Path: "../evil.sh", Content: "rm -rf /"},
	})
	require.ErrorIs(t, err, security.ErrPathTraversal)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "evil.sh"))
	assert.True(t, os.IsNotExist(err))
}

func TestFindFile(t *testing.T) {
	files := []session.File{{Name: "main.py", Path: "src/main.py"}}

	f, err := findFile(files, "src/main.py")
	require.NoError(t, err)
	assert.Equal(t, "main.py", f.Name)

	_, err = findFile(files, "main.py")
	require.NoError(t, err)

	_, err = findFile(files, "missing.py")
	assert.Error(t, err)
}

func TestListFilesMarksEntryPoint(t *testing.T) {
	var buf bytes.Buffer
	listFiles(&buf, []session.File{
		{Path: "README.md", Size: 10},
		{Path: "main.py", Size: 20},
	})
	assert.Contains(t, buf.String(), "*       20  python     main.py")

	buf.Reset()
	listFiles(&buf, nil)
	assert.Equal(t, "No generated files.\n", buf.String())
}

func TestSessionTable(t *testing.T) {
	out := sessionTable([]session.Session{
		{ID: "s1", ProjectName: "TodoApp", Status: "completed", ModelType: "GPT_4O"},
	})
	assert.Contains(t, out, "TodoApp")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "PROJECT")
}

func TestFollowSessionPrintsUntilDone(t *testing.T) {
	for _, p := range config.Providers() {
		for _, name := range security.EnvVarNames(p) {
			t.Setenv(name, "")
		}
	}

	svc := testutil.NewFakeService(t)
	svc.NextID = testutil.Sequence("s")
	svc.Script("s1",
		testutil.Frame("agent_message", map[string]string{"role": "Programmer", "message": "writing main.py", "timestamp": "2024-01-01T10:00:00"}),
		testutil.Frame("status", map[string]string{"message": "All done", "status": "completed"}),
	)

	cfg := config.DefaultConfig()
	cfg.Server.BaseURL = svc.URL()
	a, err := app.New(cfg, app.Options{Storage: storage.NewMemory()})
	require.NoError(t, err)
	a.Restore()
	t.Cleanup(a.Close)
	a.SetCredential("openai", "sk-valid")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := a.SubmitTask(ctx, "Build a todo app", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, followSession(ctx, a, sess.ID, &buf))

	out := buf.String()
	assert.Contains(t, out, "Build a todo app")
	assert.Contains(t, out, "Programmer")
	assert.Contains(t, out, "All done")
	assert.NoError(t, ctx.Err())
}

func TestFollowSessionReturnsServiceError(t *testing.T) {
	for _, p := range config.Providers() {
		for _, name := range security.EnvVarNames(p) {
			t.Setenv(name, "")
		}
	}

	svc := testutil.NewFakeService(t)
	svc.NextID = testutil.Sequence("s")
	svc.Script("s1", testutil.Frame("error", map[string]string{"message": "quota exceeded"}))

	cfg := config.DefaultConfig()
	cfg.Server.BaseURL = svc.URL()
	a, err := app.New(cfg, app.Options{Storage: storage.NewMemory()})
	require.NoError(t, err)
	a.Restore()
	t.Cleanup(a.Close)
	a.SetCredential("openai", "sk-valid")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := a.SubmitTask(ctx, "Build a todo app", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = followSession(ctx, a, sess.ID, &buf)
	require.EqualError(t, err, "quota exceeded")
}

func TestFollowSessionReportsEarlyClose(t *testing.T) {
	for _, p := range config.Providers() {
		for _, name := range security.EnvVarNames(p) {
			t.Setenv(name, "")
		}
	}

	svc := testutil.NewFakeService(t)
	svc.NextID = testutil.Sequence("s")
	svc.Script("s1", testutil.Frame("status", map[string]string{"message": "Analyzing", "status": "running"}))

	cfg := config.DefaultConfig()
	cfg.Server.BaseURL = svc.URL()
	a, err := app.New(cfg, app.Options{Storage: storage.NewMemory()})
	require.NoError(t, err)
	a.Restore()
	t.Cleanup(a.Close)
	a.SetCredential("openai", "sk-valid")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := a.SubmitTask(ctx, "Build a todo app", "")
	require.NoError(t, err)
	svc.WaitConnected(t, sess.ID)

	done := make(chan error, 1)
	var buf bytes.Buffer
	go func() { done <- followSession(ctx, a, sess.ID, &buf) }()

	require.NoError(t, svc.CloseNormally(sess.ID))
	select {
	case err := <-done:
		require.ErrorIs(t, err, errStopped)
	case <-ctx.Done():
		t.Fatal("follow never returned after the channel closed")
	}
	assert.Contains(t, buf.String(), "Connection closed")
}

func TestKeyStatus(t *testing.T) {
	assert.Equal(t, "not set", keyStatus(&security.LoadedKey{Provider: "openai", Source: security.KeySourceNotSet}))

	out := keyStatus(&security.LoadedKey{Provider: "openai", Value: "sk-abcdefghijklmnop", Source: security.KeySourceEnvironment})
	assert.True(t, strings.HasPrefix(out, "environment, "))
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
}
