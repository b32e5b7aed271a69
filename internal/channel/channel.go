// Package channel implements the per-session realtime channel: a
// receive-only websocket delivering {type, data} frames in arrival order.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"chatdev/internal/logging"

	"github.com/gorilla/websocket"
)

// State is the lifecycle state of a channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// closeGrace bounds the close handshake on detach.
const closeGrace = time.Second

// Callbacks receive channel notifications. Nil funcs are skipped. All of
// them run on the channel's reader goroutine, one at a time.
type Callbacks struct {
	OnOpen  func()
	OnEvent func(Event)
	OnError func(error)
	OnClose func()
}

// Options configures the websocket dial.
type Options struct {
	HandshakeTimeout time.Duration
	Header           http.Header
	Dialer           *websocket.Dialer
}

// URL derives the channel address of a session from the REST base address
// by swapping http for ws and https for wss.
func URL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid base url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	if sessionID == "" {
		return "", errors.New("empty session id")
	}

	return u.JoinPath("api", "sessions", sessionID, "ws").String(), nil
}

// Handle is one channel attempt for one session. Once it reaches Closed or
// Failed it never reopens.
type Handle struct {
	sessionID string
	url       string
	cb        Callbacks
	opts      Options

	state atomic.Int32

	mu       sync.Mutex
	conn     *websocket.Conn
	detached bool
	cancel   context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
}

// New prepares a channel for sessionID. Nothing is dialed until Start.
func New(baseURL, sessionID string, cb Callbacks, opts Options) (*Handle, error) {
	u, err := URL(baseURL, sessionID)
	if err != nil {
		return nil, err
	}
	return &Handle{
		sessionID: sessionID,
		url:       u,
		cb:        cb,
		opts:      opts,
		done:      make(chan struct{}),
	}, nil
}

// Attach creates a channel and starts it.
func Attach(ctx context.Context, baseURL, sessionID string, cb Callbacks, opts Options) (*Handle, error) {
	h, err := New(baseURL, sessionID, cb, opts)
	if err != nil {
		return nil, err
	}
	h.Start(ctx)
	return h, nil
}

// SessionID returns the session this channel belongs to.
func (h *Handle) SessionID() string {
	return h.sessionID
}

// URL returns the websocket address.
func (h *Handle) URL() string {
	return h.url
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Done is closed once the reader goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the reader goroutine exits or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start dials in the background. Calling it more than once is a no-op.
func (h *Handle) Start(ctx context.Context) {
	if !h.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	detached := h.detached
	h.mu.Unlock()
	if detached {
		cancel()
	}

	go h.run(ctx)
}

// Close detaches the channel. It is safe to call repeatedly and from any
// goroutine, including from inside a callback; it does not wait for the
// reader to exit (see Wait).
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.detached = true
		conn := h.conn
		cancel := h.cancel
		h.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if conn != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGrace))
			conn.Close()
		}
		// Never started: nothing will close done for us.
		if h.state.CompareAndSwap(int32(StateDisconnected), int32(StateClosed)) {
			close(h.done)
		}
	})
}

func (h *Handle) isDetached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detached
}

func (h *Handle) dialer() *websocket.Dialer {
	if h.opts.Dialer != nil {
		return h.opts.Dialer
	}
	d := *websocket.DefaultDialer
	if h.opts.HandshakeTimeout > 0 {
		d.HandshakeTimeout = h.opts.HandshakeTimeout
	}
	return &d
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)
	log := logging.With("session_id", h.sessionID)

	conn, resp, err := h.dialer().DialContext(ctx, h.url, h.opts.Header)
	if err != nil {
		if h.isDetached() {
			h.finish(StateClosed)
			return
		}
		terr := &TransportError{Op: "dial", SessionID: h.sessionID, Err: err}
		if resp != nil {
			terr.StatusCode = resp.StatusCode
		}
		log.Warn("channel dial failed", "url", h.url, "error", err)
		h.emitError(terr)
		h.finish(StateFailed)
		return
	}

	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		conn.Close()
		h.finish(StateClosed)
		return
	}
	h.conn = conn
	h.mu.Unlock()

	h.state.Store(int32(StateOpen))
	log.Debug("channel open", "url", h.url)
	if h.cb.OnOpen != nil {
		h.cb.OnOpen()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case h.isDetached():
				h.finish(StateClosed)
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				log.Debug("channel closed by server", "error", err)
				h.finish(StateClosed)
			default:
				log.Warn("channel read failed", "error", err)
				h.emitError(&TransportError{Op: "read", SessionID: h.sessionID, Err: err})
				h.finish(StateFailed)
			}
			conn.Close()
			return
		}

		ev, err := Decode(data)
		if err != nil {
			log.Debug("dropping malformed frame", "error", err)
			h.emitError(err)
			continue
		}
		if h.isDetached() {
			continue
		}
		if h.cb.OnEvent != nil {
			h.cb.OnEvent(ev)
		}
	}
}

func (h *Handle) emitError(err error) {
	if h.cb.OnError != nil {
		h.cb.OnError(err)
	}
}

func (h *Handle) finish(s State) {
	h.state.Store(int32(s))
	if h.cb.OnClose != nil {
		h.cb.OnClose()
	}
}
