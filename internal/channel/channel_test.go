package channel_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"chatdev/internal/channel"
	"chatdev/internal/session"
	"chatdev/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/api/sessions/abc/ws"},
		{"https://gen.example.com", "wss://gen.example.com/api/sessions/abc/ws"},
		{"https://gen.example.com/prefix/", "wss://gen.example.com/prefix/api/sessions/abc/ws"},
	}
	for _, tt := range tests {
		got, err := channel.URL(tt.base, "abc")
		require.NoError(t, err, tt.base)
		assert.Equal(t, tt.want, got)
	}

	_, err := channel.URL("ftp://host", "abc")
	assert.Error(t, err)
	_, err = channel.URL("http://host", "")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  channel.Event
	}{
		{
			name:  "status",
			frame: `{"type":"status","data":{"message":"Starting","status":"running"}}`,
			want:  channel.StatusEvent{Message: "Starting", Status: "running"},
		},
		{
			name:  "agent message",
			frame: `{"type":"agent_message","data":{"role":"Programmer","message":"def f(): pass","timestamp":"2024-05-01T10:00:00"}}`,
			want:  channel.AgentMessageEvent{Role: "Programmer", Message: "def f(): pass", Timestamp: "2024-05-01T10:00:00"},
		},
		{
			name:  "error",
			frame: `{"type":"error","data":{"message":"Invalid API key"}}`,
			want:  channel.ErrorEvent{Message: "Invalid API key"},
		},
		{
			name:  "extra fields ignored",
			frame: `{"type":"status","data":{"message":"m","status":"completed","extra":1},"seq":4}`,
			want:  channel.StatusEvent{Message: "m", Status: "completed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := channel.Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	ev, err := channel.Decode([]byte(`{"type":"heartbeat","data":{"n":1}}`))
	require.NoError(t, err)

	unknown, ok := ev.(channel.UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "heartbeat", unknown.Type())
	assert.JSONEq(t, `{"n":1}`, string(unknown.Data))
}

func TestDecodeMalformed(t *testing.T) {
	frames := []string{
		`not json`,
		`{"data":{"message":"x"}}`,
		`{"type":"status"}`,
		`{"type":"status","data":"plain"}`,
		`{"type":"agent_message","data":[1,2]}`,
	}
	for _, frame := range frames {
		_, err := channel.Decode([]byte(frame))
		var decodeErr *channel.DecodeError
		assert.True(t, errors.As(err, &decodeErr), frame)
	}
}

func TestDecodeMalformedKeepsWholeRunes(t *testing.T) {
	frame := "x" + strings.Repeat("é", 200)

	_, err := channel.Decode([]byte(frame))
	var decodeErr *channel.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.True(t, utf8.ValidString(decodeErr.Frame))
	assert.True(t, strings.HasSuffix(decodeErr.Frame, "..."))
	assert.True(t, strings.HasPrefix(frame, strings.TrimSuffix(decodeErr.Frame, "...")))
	assert.LessOrEqual(t, len(decodeErr.Frame), 256+len("..."))
}

func TestStatusCompleted(t *testing.T) {
	assert.True(t, channel.StatusEvent{Status: "completed"}.Completed())
	assert.False(t, channel.StatusEvent{Status: "running"}.Completed())
}

// recorder collects callbacks in arrival order.
type recorder struct {
	mu     sync.Mutex
	events []channel.Event
	errs   []error
	opened int
	closed chan struct{}
	once   sync.Once
}

func newRecorder() *recorder {
	return &recorder{closed: make(chan struct{})}
}

func (r *recorder) callbacks() channel.Callbacks {
	return channel.Callbacks{
		OnOpen: func() {
			r.mu.Lock()
			r.opened++
			r.mu.Unlock()
		},
		OnEvent: func(ev channel.Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnClose: func() {
			r.once.Do(func() { close(r.closed) })
		},
	}
}

func (r *recorder) snapshot() ([]channel.Event, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]channel.Event(nil), r.events...), append([]error(nil), r.errs...)
}

func (r *recorder) waitEvents(t *testing.T, n int) []channel.Event {
	t.Helper()
	require.Eventually(t, func() bool {
		evs, _ := r.snapshot()
		return len(evs) >= n
	}, 5*time.Second, 5*time.Millisecond)
	evs, _ := r.snapshot()
	return evs
}

func (r *recorder) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-r.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("OnClose never fired")
	}
}

func newService(t *testing.T, id string) *testutil.FakeService {
	t.Helper()
	svc := testutil.NewFakeService(t)
	svc.AddSession(session.Session{ID: id, ProjectName: "P", Task: "t", Status: session.StatusCreated})
	return svc
}

func TestHandleDeliversInOrder(t *testing.T) {
	svc := newService(t, "s1")
	svc.Script("s1",
		testutil.Frame("status", map[string]string{"message": "Starting", "status": "running"}),
		testutil.Frame("agent_message", map[string]string{"role": "CEO", "message": "hello", "timestamp": "t1"}),
		testutil.Frame("agent_message", map[string]string{"role": "CTO", "message": "world", "timestamp": "t2"}),
	)

	rec := newRecorder()
	h, err := channel.Attach(context.Background(), svc.URL(), "s1", rec.callbacks(), channel.Options{})
	require.NoError(t, err)
	defer h.Close()

	evs := rec.waitEvents(t, 3)
	assert.Equal(t, channel.StatusEvent{Message: "Starting", Status: "running"}, evs[0])
	assert.Equal(t, "CEO", evs[1].(channel.AgentMessageEvent).Role)
	assert.Equal(t, "CTO", evs[2].(channel.AgentMessageEvent).Role)
	assert.Equal(t, channel.StateOpen, h.State())

	svc.WaitConnected(t, "s1")
	require.NoError(t, svc.Push("s1", testutil.Frame("status", map[string]string{"message": "Done", "status": "completed"})))
	evs = rec.waitEvents(t, 4)
	assert.True(t, evs[3].(channel.StatusEvent).Completed())
}

func TestHandleMalformedFrameKeepsChannelOpen(t *testing.T) {
	svc := newService(t, "s1")
	svc.Script("s1",
		`{"type":`,
		testutil.Frame("error", map[string]string{"message": "Invalid API key"}),
	)

	rec := newRecorder()
	h, err := channel.Attach(context.Background(), svc.URL(), "s1", rec.callbacks(), channel.Options{})
	require.NoError(t, err)
	defer h.Close()

	evs := rec.waitEvents(t, 1)
	assert.Equal(t, channel.ErrorEvent{Message: "Invalid API key"}, evs[0])

	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	var decodeErr *channel.DecodeError
	assert.ErrorAs(t, errs[0], &decodeErr)
	assert.Equal(t, channel.StateOpen, h.State())
}

func TestHandleServerHangup(t *testing.T) {
	svc := newService(t, "s1")

	rec := newRecorder()
	h, err := channel.Attach(context.Background(), svc.URL(), "s1", rec.callbacks(), channel.Options{})
	require.NoError(t, err)
	defer h.Close()

	svc.WaitConnected(t, "s1")
	svc.Hangup("s1")
	rec.waitClosed(t)
	<-h.Done()

	assert.Equal(t, channel.StateFailed, h.State())
	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	var transportErr *channel.TransportError
	require.ErrorAs(t, errs[0], &transportErr)
	assert.Equal(t, "read", transportErr.Op)
	assert.Equal(t, "s1", transportErr.SessionID)
}

func TestHandleServerCloseNormally(t *testing.T) {
	svc := newService(t, "s1")

	rec := newRecorder()
	h, err := channel.Attach(context.Background(), svc.URL(), "s1", rec.callbacks(), channel.Options{})
	require.NoError(t, err)
	defer h.Close()

	svc.WaitConnected(t, "s1")
	require.NoError(t, svc.CloseNormally("s1"))
	rec.waitClosed(t)
	<-h.Done()

	assert.Equal(t, channel.StateClosed, h.State())
	_, errs := rec.snapshot()
	assert.Empty(t, errs)
}

func TestHandleDialUnknownSession(t *testing.T) {
	svc := testutil.NewFakeService(t)

	rec := newRecorder()
	h, err := channel.Attach(context.Background(), svc.URL(), "missing", rec.callbacks(), channel.Options{HandshakeTimeout: time.Second})
	require.NoError(t, err)

	rec.waitClosed(t)
	<-h.Done()
	assert.Equal(t, channel.StateFailed, h.State())

	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	var transportErr *channel.TransportError
	require.ErrorAs(t, errs[0], &transportErr)
	assert.Equal(t, "dial", transportErr.Op)
	assert.Equal(t, 404, transportErr.StatusCode)
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	svc := newService(t, "s1")

	rec := newRecorder()
	h, err := channel.Attach(context.Background(), svc.URL(), "s1", rec.callbacks(), channel.Options{})
	require.NoError(t, err)
	svc.WaitConnected(t, "s1")

	h.Close()
	h.Close()
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, channel.StateClosed, h.State())

	_, errs := rec.snapshot()
	assert.Empty(t, errs)
	require.Eventually(t, func() bool { return !svc.Connected("s1") }, 5*time.Second, 5*time.Millisecond)
}

func TestHandleCloseBeforeStart(t *testing.T) {
	h, err := channel.New("http://localhost:1", "s1", channel.Callbacks{}, channel.Options{})
	require.NoError(t, err)

	h.Close()
	h.Start(context.Background())
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, channel.StateClosed, h.State())
}

func TestManagerKeepsOneChannel(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.AddSession(session.Session{ID: "a", Status: session.StatusCreated})
	svc.AddSession(session.Session{ID: "b", Status: session.StatusCreated})

	var mu sync.Mutex
	var statuses []bool
	m := channel.NewManager(svc.URL(), channel.Options{})
	m.SetStatusListener(func(connected bool) {
		mu.Lock()
		statuses = append(statuses, connected)
		mu.Unlock()
	})
	defer m.Close()

	recA := newRecorder()
	first, err := m.Attach(context.Background(), "a", recA.callbacks())
	require.NoError(t, err)
	svc.WaitConnected(t, "a")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 1
	}, 5*time.Second, 5*time.Millisecond)

	recB := newRecorder()
	second, err := m.Attach(context.Background(), "b", recB.callbacks())
	require.NoError(t, err)
	svc.WaitConnected(t, "b")

	require.NoError(t, first.Wait(context.Background()))
	assert.Equal(t, channel.StateClosed, first.State())
	assert.Same(t, second, m.Current())
	assert.Equal(t, "b", m.CurrentSession())
	require.Eventually(t, func() bool { return !svc.Connected("a") }, 5*time.Second, 5*time.Millisecond)

	// The replaced channel's close is not reported to its callbacks.
	select {
	case <-recA.closed:
		t.Fatal("detached channel reported OnClose")
	default:
	}

	require.NoError(t, svc.Push("b", testutil.Frame("status", map[string]string{"message": "hi", "status": "running"})))
	recB.waitEvents(t, 1)
	evsA, _ := recA.snapshot()
	assert.Empty(t, evsA)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 3
	}, 5*time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []bool{true, false, true}, statuses)
	mu.Unlock()
	assert.True(t, m.Connected())
}

func TestManagerDetach(t *testing.T) {
	svc := newService(t, "s1")
	m := channel.NewManager(svc.URL(), channel.Options{})

	assert.False(t, m.DetachSession("s1"))
	m.Detach()

	h, err := m.Attach(context.Background(), "s1", channel.Callbacks{})
	require.NoError(t, err)
	svc.WaitConnected(t, "s1")

	assert.False(t, m.DetachSession("other"))
	assert.True(t, m.DetachSession("s1"))
	assert.Nil(t, m.Current())
	require.NoError(t, h.Wait(context.Background()))

	m.Close()
	_, err = m.Attach(context.Background(), "s1", channel.Callbacks{})
	assert.Error(t, err)
}
