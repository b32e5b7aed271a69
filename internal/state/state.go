// Package state is the single source of truth of the client: credentials,
// model selection, known sessions, the current conversation and connection
// status. It changes only through the Action set and never performs I/O.
package state

import (
	"maps"

	"chatdev/internal/chat"
	"chatdev/internal/config"
	"chatdev/internal/session"
)

// State is an immutable snapshot. Values reachable from a State are never
// modified after it is published, so observers may keep it.
type State struct {
	Credentials map[string]string
	Model       config.ModelSelection
	Sessions    session.Set
	CurrentID   string
	Chat        chat.Log
	Generating  bool
	Connected   bool
}

// Initial returns the state before anything is restored.
func Initial() State {
	return State{
		Credentials: map[string]string{},
		Model:       config.DefaultSelection(),
	}
}

// Current returns the current session.
func (s State) Current() (session.Session, bool) {
	if s.CurrentID == "" {
		return session.Session{}, false
	}
	return s.Sessions.Get(s.CurrentID)
}

// Credential returns the secret configured for provider.
func (s State) Credential(provider string) string {
	return s.Credentials[provider]
}

// ActiveCredential returns the secret for the selected provider.
func (s State) ActiveCredential() string {
	return s.Credentials[s.Model.Provider]
}

// Reduce applies a to s. It is pure and total: unknown or no-op actions
// return s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetCredential:
		creds := maps.Clone(s.Credentials)
		if creds == nil {
			creds = map[string]string{}
		}
		if a.Secret == "" {
			delete(creds, a.Provider)
		} else {
			creds[a.Provider] = a.Secret
		}
		s.Credentials = creds

	case SetModel:
		s.Model = a.Selection

	case SelectSession:
		if a.Session.ID == "" {
			s.CurrentID = ""
			break
		}
		if !s.Sessions.Contains(a.Session.ID) {
			s.Sessions = s.Sessions.Put(a.Session)
		}
		if s.CurrentID != a.Session.ID {
			s.Chat = chat.Log{}
		}
		s.CurrentID = a.Session.ID

	case AppendChatEntry:
		s.Chat = s.Chat.Append(a.Entry)

	case SetGenerating:
		s.Generating = a.Generating

	case ReplaceSessions:
		s.Sessions = session.NewSet(a.Sessions...)
		if !s.Sessions.Contains(s.CurrentID) {
			s.CurrentID = ""
		}

	case AddSession:
		s.Sessions = s.Sessions.Put(a.Session)

	case RemoveSession:
		s.Sessions = s.Sessions.Remove(a.ID)
		if s.CurrentID == a.ID {
			s.CurrentID = ""
		}

	case SetConnectionStatus:
		s.Connected = a.Connected

	case ClearChat:
		s.Chat = chat.Log{}
	}
	return s
}
