// Package testutil provides an in-process fake of the generation service
// for package tests: the REST endpoints plus the per-session websocket.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatdev/internal/config"
	"chatdev/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CreateBody mirrors the create-session request body.
type CreateBody struct {
	Task        string `json:"task"`
	ProjectName string `json:"project_name"`
	ModelType   string `json:"model_type"`
	APIKey      string `json:"api_key"`
	Provider    string `json:"provider"`
}

type cannedResponse struct {
	status int
	body   string
}

// FakeService is a scripted generation service.
type FakeService struct {
	Server *httptest.Server

	// NextID assigns session ids; defaults to random uuids.
	NextID func() string

	mu       sync.Mutex
	sessions session.Set
	files    map[string][]session.File
	frames   map[string][]string
	failures map[string]cannedResponse
	holds    map[string]*hold
	created  []CreateBody
	conns    map[string]*wsConn

	requests atomic.Int64
	upgrader websocket.Upgrader
}

type hold struct {
	arrived chan struct{}
	release chan struct{}
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// NewFakeService starts a fake service; it is closed with the test.
func NewFakeService(t testing.TB) *FakeService {
	t.Helper()

	f := &FakeService{
		NextID:   uuid.NewString,
		files:    make(map[string][]session.File),
		frames:   make(map[string][]string),
		failures: make(map[string]cannedResponse),
		holds:    make(map[string]*hold),
		conns:    make(map[string]*wsConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(f.count, f.inject, f.hold)
	r.Route("/api", func(api chi.Router) {
		api.Get("/health", f.health)
		api.Get("/sessions", f.list)
		api.Post("/sessions", f.create)
		api.Delete("/sessions/{id}", f.delete)
		api.Get("/sessions/{id}/files", f.listFiles)
		api.Get("/sessions/{id}/ws", f.websocket)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

// Sequence returns an id generator yielding prefix1, prefix2, ...
func Sequence(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

// URL returns the REST base address.
func (f *FakeService) URL() string {
	return f.Server.URL
}

// Close shuts the server and any open websocket.
func (f *FakeService) Close() {
	f.mu.Lock()
	for id, c := range f.conns {
		c.conn.Close()
		delete(f.conns, id)
	}
	f.mu.Unlock()
	f.Server.CloseClientConnections()
	f.Server.Close()
}

// Requests returns how many HTTP requests reached the service.
func (f *FakeService) Requests() int {
	return int(f.requests.Load())
}

// AddSession seeds a known session.
func (f *FakeService) AddSession(s session.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = f.sessions.Put(s)
}

// SetFiles sets the generated files of a session.
func (f *FakeService) SetFiles(id string, files ...session.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = files
}

// Script sets raw frames sent to the websocket of id right after it connects.
func (f *FakeService) Script(id string, frames ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[id] = frames
}

// Fail makes every request to path answer with status and body.
func (f *FakeService) Fail(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = cannedResponse{status: status, body: body}
}

// Created returns the create-session bodies received so far.
func (f *FakeService) Created() []CreateBody {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CreateBody, len(f.created))
	copy(out, f.created)
	return out
}

// Connected reports whether a websocket for id is open.
func (f *FakeService) Connected(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.conns[id]
	return ok
}

// WaitConnected blocks until the websocket for id is open.
func (f *FakeService) WaitConnected(t testing.TB, id string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !f.Connected(id) {
		if time.Now().After(deadline) {
			t.Fatalf("websocket for session %s never connected", id)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Push sends a raw frame to the open websocket of id.
func (f *FakeService) Push(id, frame string) error {
	f.mu.Lock()
	c, ok := f.conns[id]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no websocket for session %s", id)
	}
	return c.write(frame)
}

// Hangup closes the websocket of id from the server side.
func (f *FakeService) Hangup(id string) {
	f.mu.Lock()
	c, ok := f.conns[id]
	delete(f.conns, id)
	f.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// CloseNormally ends the websocket of id with a normal closure frame.
func (f *FakeService) CloseNormally(id string) error {
	f.mu.Lock()
	c, ok := f.conns[id]
	delete(f.conns, id)
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no websocket for session %s", id)
	}

	c.mu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return err
}

// Hold answers the next request to path from the state at arrival, but
// delays writing the response until release is called. arrived is closed
// once the request has been handled.
func (f *FakeService) Hold(path string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.holds[path] = h
	f.mu.Unlock()

	var once sync.Once
	return h.arrived, func() { once.Do(func() { close(h.release) }) }
}

// Frame builds a {type, data} envelope.
func Frame(typ string, data any) string {
	raw, err := json.Marshal(map[string]any{"type": typ, "data": data})
	if err != nil {
		panic(err)
	}
	return string(raw)
}

func (f *FakeService) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (f *FakeService) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		canned, ok := f.failures[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(canned.status)
		w.Write([]byte(canned.body))
	})
}

func (f *FakeService) hold(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		h, ok := f.holds[r.URL.Path]
		delete(f.holds, r.URL.Path)
		f.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, r)
		close(h.arrived)
		select {
		case <-h.release:
		case <-r.Context().Done():
			return
		}
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		w.Write(rec.Body.Bytes())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (f *FakeService) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (f *FakeService) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	items := f.sessions.Items()
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

func (f *FakeService) create(w http.ResponseWriter, r *http.Request) {
	var body CreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if _, ok := config.LookupProvider(body.Provider); !ok {
		detail(w, http.StatusBadRequest, "Unsupported provider: "+body.Provider)
		return
	}
	if _, ok := config.LookupModel(body.Provider, body.ModelType); !ok {
		detail(w, http.StatusBadRequest, "Unsupported model type: "+body.ModelType)
		return
	}

	s := session.Session{
		ID:          f.NextID(),
		ProjectName: body.ProjectName,
		Task:        body.Task,
		ModelType:   body.ModelType,
		Status:      session.StatusCreated,
		CreatedAt:   time.Now().Format("2006-01-02T15:04:05.000000"),
	}

	f.mu.Lock()
	f.created = append(f.created, body)
	stored := s
	stored.Provider = body.Provider
	f.sessions = f.sessions.Put(stored)
	f.mu.Unlock()

	// The response leaves out provider, like the real service.
	writeJSON(w, http.StatusOK, s)
}

func (f *FakeService) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	found := f.sessions.Contains(id)
	f.sessions = f.sessions.Remove(id)
	delete(f.files, id)
	c := f.conns[id]
	delete(f.conns, id)
	f.mu.Unlock()

	if !found {
		detail(w, http.StatusNotFound, "Session not found")
		return
	}
	if c != nil {
		c.conn.Close()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func (f *FakeService) listFiles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	found := f.sessions.Contains(id)
	files := f.files[id]
	f.mu.Unlock()

	if !found {
		detail(w, http.StatusNotFound, "Session not found")
		return
	}
	if files == nil {
		files = []session.File{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (f *FakeService) websocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	found := f.sessions.Contains(id)
	frames := f.frames[id]
	f.mu.Unlock()
	if !found {
		detail(w, http.StatusNotFound, "Session not found")
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsConn{conn: conn}

	// Scripted frames go out before the connection is visible to Push, so
	// they always arrive first and in order.
	for _, frame := range frames {
		if err := c.write(frame); err != nil {
			conn.Close()
			return
		}
	}

	f.mu.Lock()
	if old, ok := f.conns[id]; ok {
		old.conn.Close()
	}
	f.conns[id] = c
	f.mu.Unlock()

	// Receive-only clients never send data; this loop just notices close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	if f.conns[id] == c {
		delete(f.conns, id)
	}
	f.mu.Unlock()
	conn.Close()
}
