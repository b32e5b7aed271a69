package app

import (
	"errors"

	"chatdev/internal/channel"
	"chatdev/internal/chat"
	"chatdev/internal/logging"
	"chatdev/internal/security"
	"chatdev/internal/session"
	"chatdev/internal/state"
)

// ifCurrent applies actions only while id is still the current session.
func ifCurrent(id string, actions ...state.Action) func(state.State) []state.Action {
	return func(s state.State) []state.Action {
		if s.CurrentID != id {
			return nil
		}
		return actions
	}
}

// handleEvent turns one channel event into state changes.
func (a *App) handleEvent(id string, ev channel.Event) {
	switch ev := ev.(type) {
	case channel.StatusEvent:
		finished := ev.Completed()
		next := a.store.Update(func(s state.State) []state.Action {
			if s.CurrentID != id {
				return nil
			}
			actions := []state.Action{state.AppendChatEntry{Entry: chat.SystemEntry(ev.Message, ev.Status)}}
			if sess, ok := s.Sessions.Get(id); ok && ev.Status != "" && sess.Status != ev.Status {
				sess.Status = ev.Status
				actions = append(actions, state.AddSession{Session: sess})
			}
			if finished {
				actions = append(actions, state.SetGenerating{Generating: false})
			}
			return actions
		})
		if finished && next.CurrentID == id {
			logging.Info("generation finished", "session_id", id)
			if fn := a.finishedHook(); fn != nil {
				fn(id)
			}
		}

	case channel.AgentMessageEvent:
		a.store.Update(ifCurrent(id,
			state.AppendChatEntry{Entry: chat.AgentEntry(ev.Role, ev.Message, ev.Timestamp)}))

	case channel.ErrorEvent:
		msg := security.Redact(ev.Message)
		logging.Warn("generation error", "session_id", id, "message", msg)
		a.store.Update(func(s state.State) []state.Action {
			if s.CurrentID != id {
				return nil
			}
			actions := []state.Action{
				state.AppendChatEntry{Entry: chat.ErrorEntry(msg)},
				state.SetGenerating{Generating: false},
			}
			if sess, ok := s.Sessions.Get(id); ok && sess.Status != session.StatusError {
				sess.Status = session.StatusError
				actions = append(actions, state.AddSession{Session: sess})
			}
			return actions
		})

	case channel.UnknownEvent:
		logging.Warn("ignoring unknown channel event", "session_id", id, "type", ev.Kind)
	}
}

// handleChannelError logs malformed frames and reports a lost connection
// while generation is still running.
func (a *App) handleChannelError(id string, err error) {
	var decodeErr *channel.DecodeError
	if errors.As(err, &decodeErr) {
		logging.Warn("malformed channel frame", "session_id", id, "frame", decodeErr.Frame, "error", decodeErr.Err)
		return
	}

	logging.Warn("channel failed", "session_id", id, "error", err)
	a.store.Update(func(s state.State) []state.Action {
		if s.CurrentID != id || !s.Generating {
			return nil
		}
		return []state.Action{
			state.AppendChatEntry{Entry: chat.ErrorEntry("Connection lost: " + err.Error())},
			state.SetGenerating{Generating: false},
		}
	})
}

// handleChannelClosed ends a generation whose channel the service closed
// before reporting completion. Broken connections are already handled by
// handleChannelError, which clears Generating first.
func (a *App) handleChannelClosed(id string) {
	next := a.store.Update(func(s state.State) []state.Action {
		if s.CurrentID != id || !s.Generating {
			return nil
		}
		return []state.Action{
			state.AppendChatEntry{Entry: chat.SystemEntry("Connection closed", "")},
			state.SetGenerating{Generating: false},
		}
	})
	logging.Debug("channel closed", "session_id", id, "current", next.CurrentID == id)
}
