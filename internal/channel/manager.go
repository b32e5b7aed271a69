package channel

import (
	"context"
	"sync"

	"chatdev/internal/logging"
)

// Manager keeps at most one live channel. Attaching a new session detaches
// the previous one first, and callbacks from a replaced handle are dropped.
type Manager struct {
	baseURL string
	opts    Options

	mu       sync.Mutex
	current  *Handle
	status   func(connected bool)
	closed   bool
	lastSent bool
}

// NewManager creates a manager dialing channels under baseURL.
func NewManager(baseURL string, opts Options) *Manager {
	return &Manager{baseURL: baseURL, opts: opts}
}

// SetStatusListener registers fn to be told when the live channel opens
// or goes away. fn runs with the manager lock held and must not call back
// into the manager.
func (m *Manager) SetStatusListener(fn func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = fn
}

// Attach opens a channel for sessionID, detaching any previous one.
func (m *Manager) Attach(ctx context.Context, sessionID string, cb Callbacks) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, context.Canceled
	}

	m.detachLocked()

	var h *Handle
	wrapped := Callbacks{
		OnOpen: func() {
			m.mu.Lock()
			ok := m.current == h
			if ok {
				m.notifyLocked(true)
			}
			m.mu.Unlock()
			if ok && cb.OnOpen != nil {
				cb.OnOpen()
			}
		},
		OnEvent: func(ev Event) {
			if m.isCurrent(h) && cb.OnEvent != nil {
				cb.OnEvent(ev)
			}
		},
		OnError: func(err error) {
			if m.isCurrent(h) && cb.OnError != nil {
				cb.OnError(err)
			}
		},
		OnClose: func() {
			m.mu.Lock()
			ok := m.current == h
			if ok {
				m.current = nil
				m.notifyLocked(false)
			}
			m.mu.Unlock()
			if ok && cb.OnClose != nil {
				cb.OnClose()
			}
		},
	}

	var err error
	h, err = New(m.baseURL, sessionID, wrapped, m.opts)
	if err != nil {
		return nil, err
	}
	m.current = h
	h.Start(ctx)

	logging.Debug("channel attached", "session_id", sessionID)
	return h, nil
}

// Detach closes the live channel, if any.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachLocked()
}

// DetachSession closes the live channel only when it belongs to sessionID.
func (m *Manager) DetachSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.SessionID() != sessionID {
		return false
	}
	m.detachLocked()
	return true
}

// Current returns the live channel, or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentSession returns the session id of the live channel, or "".
func (m *Manager) CurrentSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.SessionID()
}

// Connected reports whether the live channel is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.State() == StateOpen
}

// Close detaches and refuses further attaches.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachLocked()
	m.closed = true
}

func (m *Manager) isCurrent(h *Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return h != nil && m.current == h
}

func (m *Manager) detachLocked() {
	if m.current == nil {
		return
	}
	h := m.current
	m.current = nil
	h.Close()
	m.notifyLocked(false)
	logging.Debug("channel detached", "session_id", h.SessionID())
}

func (m *Manager) notifyLocked(connected bool) {
	if m.lastSent == connected {
		return
	}
	m.lastSent = connected
	if m.status != nil {
		m.status(connected)
	}
}
