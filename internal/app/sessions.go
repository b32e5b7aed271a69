package app

import (
	"context"
	"errors"
	"strings"

	"chatdev/internal/channel"
	"chatdev/internal/chat"
	"chatdev/internal/client"
	"chatdev/internal/logging"
	"chatdev/internal/preview"
	"chatdev/internal/session"
	"chatdev/internal/state"
)

// SubmitTask creates a generation session for task with the active model,
// makes it current and attaches its realtime channel. Failures are also
// recorded as error entries in the conversation.
func (a *App) SubmitTask(ctx context.Context, task, projectName string) (session.Session, error) {
	task = strings.TrimSpace(task)
	projectName = strings.TrimSpace(projectName)
	if task == "" {
		return session.Session{}, ErrEmptyTask
	}
	if projectName == "" {
		projectName = DefaultProjectName(task)
	}

	snap := a.store.Snapshot()
	sel := snap.Model
	key := snap.Credential(sel.Provider)
	if key == "" {
		err := &client.MissingCredentialError{Provider: sel.Provider}
		a.store.Dispatch(state.AppendChatEntry{Entry: chat.ErrorEntry(
			"Please configure your " + providerName(sel.Provider) + " API key first")})
		return session.Session{}, err
	}

	a.store.Dispatch(state.SetGenerating{Generating: true})

	s, err := a.client.CreateSession(ctx, client.CreateRequest{
		Task:        task,
		ProjectName: projectName,
		ModelType:   sel.Model,
		Provider:    sel.Provider,
		APIKey:      key,
	})
	if err != nil {
		logging.Warn("create session failed", "project", projectName, "error", err)
		a.store.Update(ifCurrent(snap.CurrentID,
			state.AppendChatEntry{Entry: chat.UserEntry(task, projectName)},
			state.AppendChatEntry{Entry: chat.ErrorEntry("Failed to create session: " + Describe(err))},
			state.SetGenerating{Generating: false},
		))
		return session.Session{}, err
	}

	// The user may have picked another session while the request ran. The
	// new session is still listed then, but it is not selected or attached.
	moved := false
	a.store.Update(func(st state.State) []state.Action {
		if st.CurrentID != snap.CurrentID {
			moved = true
			return []state.Action{state.AddSession{Session: s}}
		}
		return []state.Action{
			state.AddSession{Session: s},
			state.SelectSession{Session: s},
			state.AppendChatEntry{Entry: chat.UserEntry(task, projectName)},
			state.SetGenerating{Generating: true},
		}
	})
	if moved {
		logging.Info("session created after selection changed", "session_id", s.ID)
		return s, nil
	}
	a.tracker.Reset()
	logging.Info("session created", "session_id", s.ID, "project", s.ProjectName, "model", sel.String())

	if err := a.attach(s.ID); err != nil {
		return s, err
	}
	return s, nil
}

// attach opens the realtime channel of id, replacing any previous one.
func (a *App) attach(id string) error {
	_, err := a.channels.Attach(a.ctx, id, channel.Callbacks{
		OnEvent: func(ev channel.Event) { a.handleEvent(id, ev) },
		OnError: func(err error) { a.handleChannelError(id, err) },
		OnClose: func() { a.handleChannelClosed(id) },
	})
	if err != nil {
		logging.Warn("channel attach failed", "session_id", id, "error", err)
		a.store.Update(ifCurrent(id,
			state.AppendChatEntry{Entry: chat.ErrorEntry("Connection error: " + err.Error())},
			state.SetGenerating{Generating: false},
		))
	}
	return err
}

// RefreshSessions replaces the session set with the service's list. On
// failure the state is left as it was.
//
// The listing may be older than local changes made while it was in flight.
// Sessions added locally during the request are kept, and so is the current
// session when it was created or selected after the request began. Only a
// current session that was already current before the request, and that the
// service no longer lists, is deselected.
func (a *App) RefreshSessions(ctx context.Context) ([]session.Session, error) {
	before := a.store.Snapshot()

	sessions, err := a.client.ListSessions(ctx)
	if err != nil {
		logging.Warn("list sessions failed", "error", err)
		return nil, err
	}

	dropped := ""
	next := a.store.Update(func(s state.State) []state.Action {
		dropped = ""
		listed := session.NewSet(sessions...)
		merged := append([]session.Session(nil), sessions...)
		for _, local := range s.Sessions.Items() {
			if listed.Contains(local.ID) {
				continue
			}
			if !before.Sessions.Contains(local.ID) || (local.ID == s.CurrentID && s.CurrentID != before.CurrentID) {
				merged = append(merged, local)
			}
		}
		actions := []state.Action{state.ReplaceSessions{Sessions: merged}}
		if s.CurrentID != "" && !session.NewSet(merged...).Contains(s.CurrentID) {
			dropped = s.CurrentID
			actions = append(actions, state.SetGenerating{Generating: false})
		}
		return actions
	})
	if dropped != "" {
		logging.Info("current session no longer listed", "session_id", dropped)
		a.channels.DetachSession(dropped)
		if a.tracker.SessionID() == dropped {
			a.tracker.Reset()
		}
	}
	return next.Sessions.Items(), nil
}

// SelectSession makes a known session current. Choosing another session
// detaches the live channel; the service starts a run whenever its channel
// is opened, so past sessions are inspected through their files only.
func (a *App) SelectSession(id string) error {
	if id == "" {
		a.channels.Detach()
		a.tracker.Reset()
		a.store.Dispatch(state.SelectSession{}, state.SetGenerating{Generating: false})
		return nil
	}

	snap := a.store.Snapshot()
	s, ok := snap.Sessions.Get(id)
	if !ok {
		return &UnknownSessionError{ID: id}
	}
	if snap.CurrentID == id {
		return nil
	}

	a.channels.Detach()
	a.tracker.Reset()
	a.store.Dispatch(
		state.SelectSession{Session: s},
		state.SetGenerating{Generating: false},
	)
	return nil
}

// DeleteSession deletes id on the service and then drops it locally. When
// the service refuses, local state is untouched and the error is returned.
func (a *App) DeleteSession(ctx context.Context, id string) error {
	if err := a.client.DeleteSession(ctx, id); err != nil {
		logging.Warn("delete session failed", "session_id", id, "error", err)
		return err
	}

	a.channels.DetachSession(id)
	if a.tracker.SessionID() == id {
		a.tracker.Reset()
	}
	a.store.Update(func(s state.State) []state.Action {
		actions := []state.Action{state.RemoveSession{ID: id}}
		if s.CurrentID == id {
			actions = append(actions, state.SetGenerating{Generating: false})
		}
		return actions
	})
	logging.Info("session deleted", "session_id", id)
	return nil
}

// FetchFiles returns the generated files of any session.
func (a *App) FetchFiles(ctx context.Context, id string) ([]session.File, error) {
	return a.client.FetchFiles(ctx, id)
}

// RefreshPreview fetches the files of the current session into the preview
// tracker and returns what changed. A result that arrives after the user
// switched sessions is dropped with ErrStale.
func (a *App) RefreshPreview(ctx context.Context) ([]preview.Change, error) {
	id := a.store.Snapshot().CurrentID
	if id == "" {
		return nil, ErrNoSession
	}

	files, err := a.client.FetchFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.store.Snapshot().CurrentID != id {
		logging.Debug("dropping stale file listing", "session_id", id)
		return nil, ErrStale
	}
	return a.tracker.Update(id, files), nil
}

// Health reports whether the service answers.
func (a *App) Health(ctx context.Context) (client.Health, error) {
	return a.client.Health(ctx)
}

// Describe renders err for the conversation: the service message for
// request errors, the plain error text otherwise.
func Describe(err error) string {
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}
