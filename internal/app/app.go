// Package app wires the session registry, the realtime channel and the
// state store together. Every I/O completion ends in exactly one dispatch.
package app

import (
	"context"
	"fmt"
	"sync"

	"chatdev/internal/channel"
	"chatdev/internal/client"
	"chatdev/internal/config"
	"chatdev/internal/credentials"
	"chatdev/internal/logging"
	"chatdev/internal/preview"
	"chatdev/internal/state"
	"chatdev/internal/storage"
)

// App is the client orchestration layer shared by the TUI and the CLI.
type App struct {
	cfg      *config.Config
	store    *state.Store
	creds    *credentials.Store
	client   *client.Client
	channels *channel.Manager
	tracker  *preview.Tracker

	// ctx bounds channel lifetimes; it ends with Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	onFinished func(sessionID string)
	closed     bool
}

// Options overrides the collaborators New would otherwise build from the
// config. Nil fields get defaults.
type Options struct {
	Storage  storage.Store
	Client   *client.Client
	Channels *channel.Manager
	Filter   *preview.Filter
}

// New builds an App. Call Restore before use.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := opts.Storage
	if backend == nil {
		backend = storage.NewFile(cfg.StoragePath())
	}

	c := opts.Client
	if c == nil {
		c = client.NewFromConfig(cfg)
	}

	channels := opts.Channels
	if channels == nil {
		channels = channel.NewManager(c.BaseURL(), channel.Options{
			HandshakeTimeout: cfg.Server.HandshakeTimeout,
		})
	}

	filter := preview.Filter{Exclude: preview.DefaultExclude}
	if opts.Filter != nil {
		filter = *opts.Filter
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("preview filter: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:      cfg,
		store:    state.NewStore(state.Initial()),
		creds:    credentials.New(backend, cfg.Storage.Namespace),
		client:   c,
		channels: channels,
		tracker:  preview.NewTracker(filter),
		ctx:      ctx,
		cancel:   cancel,
	}

	channels.SetStatusListener(func(connected bool) {
		a.store.Dispatch(state.SetConnectionStatus{Connected: connected})
	})
	return a, nil
}

// Restore loads persisted credentials and the model selection into state.
func (a *App) Restore() {
	a.creds.Restore()

	actions := []state.Action{state.SetModel{Selection: a.creds.Selection()}}
	for provider, secret := range a.creds.Keys() {
		actions = append(actions, state.SetCredential{Provider: provider, Secret: secret})
	}
	a.store.Dispatch(actions...)

	logging.Debug("state restored",
		"providers", a.creds.Providers(),
		"model", a.creds.Selection().String())
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Client returns the session registry client.
func (a *App) Client() *client.Client {
	return a.client
}

// Credentials returns the credential store.
func (a *App) Credentials() *credentials.Store {
	return a.creds
}

// Preview returns the file tracker of the current session.
func (a *App) Preview() *preview.Tracker {
	return a.tracker
}

// Snapshot returns the latest state.
func (a *App) Snapshot() state.State {
	return a.store.Snapshot()
}

// Subscribe registers an observer of state changes.
func (a *App) Subscribe(fn state.Observer) (unsubscribe func()) {
	return a.store.Subscribe(fn)
}

// OnFinished sets the hook run when a session reports completion. It runs
// on the channel's goroutine, after the state has been updated.
func (a *App) OnFinished(fn func(sessionID string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFinished = fn
}

func (a *App) finishedHook() func(string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.onFinished
}

// SetCredential stores a provider key, persists it and mirrors it into state.
// An empty secret removes the key.
func (a *App) SetCredential(provider, secret string) {
	a.creds.Set(provider, secret)
	a.store.Dispatch(state.SetCredential{Provider: provider, Secret: a.creds.Get(provider)})
}

// SetModel changes the active provider/model pair.
func (a *App) SetModel(sel config.ModelSelection) error {
	if err := a.creds.SetSelection(sel); err != nil {
		return err
	}
	a.store.Dispatch(state.SetModel{Selection: sel})
	return nil
}

// Close detaches the channel and stops background work. Safe to call twice.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.channels.Close()
	a.cancel()
}
