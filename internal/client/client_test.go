package client_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"chatdev/internal/client"
	"chatdev/internal/session"
	"chatdev/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*client.Client, *testutil.FakeService) {
	t.Helper()
	svc := testutil.NewFakeService(t)
	svc.NextID = testutil.Sequence("s")
	return client.New(client.Options{BaseURL: svc.URL() + "/", Timeout: 5 * time.Second}), svc
}

func todoRequest() client.CreateRequest {
	return client.CreateRequest{
		Task:        "Build a todo app",
		ProjectName: "TodoApp",
		ModelType:   "GPT_4O_MINI",
		Provider:    "openai",
		APIKey:      "sk-test",
	}
}

func TestCreateSession(t *testing.T) {
	c, svc := newClient(t)

	s, err := c.CreateSession(context.Background(), todoRequest())
	require.NoError(t, err)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, session.StatusCreated, s.Status)
	assert.Equal(t, "TodoApp", s.ProjectName)
	assert.Equal(t, "openai", s.Provider, "provider filled from request")
	assert.NotEmpty(t, s.CreatedAt)

	created := svc.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "sk-test", created[0].APIKey)
	assert.Equal(t, "TodoApp", created[0].ProjectName)
}

func TestCreateSessionMissingKeyIssuesNoRequest(t *testing.T) {
	c, svc := newClient(t)

	req := todoRequest()
	req.APIKey = "  "
	_, err := c.CreateSession(context.Background(), req)

	var missing *client.MissingCredentialError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "openai", missing.Provider)
	assert.Equal(t, 0, svc.Requests())
}

func TestCreateSessionServerDetail(t *testing.T) {
	c, _ := newClient(t)

	req := todoRequest()
	req.ModelType = "GPT_9"
	_, err := c.CreateSession(context.Background(), req)

	var reqErr *client.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Equal(t, "Unsupported model type: GPT_9", reqErr.Error())
}

func TestRequestErrorMessageSources(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"message":"quota exceeded","detail":"ignored"}`, "quota exceeded"},
		{"detail field", http.StatusConflict, `{"detail":"busy"}`, "busy"},
		{"no json", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP 502: Bad Gateway"},
		{"json without message", http.StatusInternalServerError, `{"code":7}`, "HTTP 500: Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, svc := newClient(t)
			svc.Fail("/api/sessions", tt.status, tt.body)

			_, err := c.ListSessions(context.Background())

			var reqErr *client.RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, tt.message, reqErr.Message)
			assert.Contains(t, reqErr.Status, http.StatusText(tt.status))
		})
	}
}

func TestListSessions(t *testing.T) {
	c, svc := newClient(t)

	list, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	svc.AddSession(session.Session{ID: "a", ProjectName: "A", Status: session.StatusCompleted})
	svc.AddSession(session.Session{ID: "b", ProjectName: "B", Status: session.StatusRunning})

	list, err = c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, session.StatusRunning, list[1].Status)
}

func TestDeleteSession(t *testing.T) {
	c, svc := newClient(t)
	svc.AddSession(session.Session{ID: "gone"})

	require.NoError(t, c.DeleteSession(context.Background(), "gone"))

	err := c.DeleteSession(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
	assert.Equal(t, "Session not found", err.Error())
}

func TestFetchFiles(t *testing.T) {
	c, svc := newClient(t)
	svc.AddSession(session.Session{ID: "s"})

	files, err := c.FetchFiles(context.Background(), "s")
	require.NoError(t, err, "no files yet is not an error")
	assert.Empty(t, files)

	svc.SetFiles("s",
		session.File{Name: "main.py", Path: "main.py", Size: 12, Content: "print('hi')\n"},
		session.File{Name: "README.md", Path: "docs/README.md", Size: 3, Content: "# A"},
	)
	files, err = c.FetchFiles(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "docs/README.md", files[1].Path)
	assert.EqualValues(t, 12, files[0].Size)

	_, err = c.FetchFiles(context.Background(), "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestHealth(t *testing.T) {
	c, _ := newClient(t)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}

func TestTransportErrorIsNotRequestError(t *testing.T) {
	c, svc := newClient(t)
	svc.Close()

	_, err := c.ListSessions(context.Background())
	require.Error(t, err)

	var reqErr *client.RequestError
	assert.False(t, errors.As(err, &reqErr))
	assert.Contains(t, err.Error(), "list sessions")
}

func TestBaseURLTrimmed(t *testing.T) {
	c := client.New(client.Options{BaseURL: "http://example.com/"})
	assert.Equal(t, "http://example.com", c.BaseURL())
}
