package state

import (
	"chatdev/internal/chat"
	"chatdev/internal/config"
	"chatdev/internal/session"
)

// Action is one of the enumerated state changes. The set is closed.
type Action interface {
	action()
}

// SetCredential stores a provider secret; an empty Secret removes it.
type SetCredential struct {
	Provider string
	Secret   string
}

// SetModel replaces the active model selection.
type SetModel struct {
	Selection config.ModelSelection
}

// SelectSession makes Session current, adding it to the set when missing.
// Switching to a different id clears the conversation; an empty id
// deselects.
type SelectSession struct {
	Session session.Session
}

// AppendChatEntry adds one entry to the conversation.
type AppendChatEntry struct {
	Entry chat.Entry
}

// SetGenerating toggles the in-progress indicator.
type SetGenerating struct {
	Generating bool
}

// ReplaceSessions swaps the whole session set, e.g. after a list call.
type ReplaceSessions struct {
	Sessions []session.Session
}

// AddSession inserts a session, or updates it in place when the id is known.
type AddSession struct {
	Session session.Session
}

// RemoveSession drops a session and deselects it if current.
type RemoveSession struct {
	ID string
}

// SetConnectionStatus records whether the attached channel is open.
type SetConnectionStatus struct {
	Connected bool
}

// ClearChat empties the conversation.
type ClearChat struct{}

func (SetCredential) action()       {}
func (SetModel) action()            {}
func (SelectSession) action()       {}
func (AppendChatEntry) action()     {}
func (SetGenerating) action()       {}
func (ReplaceSessions) action()     {}
func (AddSession) action()          {}
func (RemoveSession) action()       {}
func (SetConnectionStatus) action() {}
func (ClearChat) action()           {}
