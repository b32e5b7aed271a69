package chat

import "time"

// Kind classifies a conversation entry.
type Kind string

const (
	KindUser   Kind = "user"
	KindAgent  Kind = "agent"
	KindSystem Kind = "system"
	KindError  Kind = "error"
)

// Entry is one immutable line of the conversation.
type Entry struct {
	Kind      Kind   `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`

	Role        string `json:"role,omitempty"`         // agent entries: producing agent
	ProjectName string `json:"project_name,omitempty"` // user entries
	Status      string `json:"status,omitempty"`       // system entries
}

// Now formats the local time the way entries carry it.
var Now = func() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// UserEntry records a task submitted by the user.
func UserEntry(content, projectName string) Entry {
	return Entry{Kind: KindUser, Content: content, ProjectName: projectName, Timestamp: Now()}
}

// AgentEntry records an agent message. ts is the server timestamp, kept
// verbatim; an empty ts falls back to local time.
func AgentEntry(role, content, ts string) Entry {
	if ts == "" {
		ts = Now()
	}
	return Entry{Kind: KindAgent, Role: role, Content: content, Timestamp: ts}
}

// SystemEntry records a status update.
func SystemEntry(content, status string) Entry {
	return Entry{Kind: KindSystem, Content: content, Status: status, Timestamp: Now()}
}

// ErrorEntry records an error shown to the user.
func ErrorEntry(content string) Entry {
	return Entry{Kind: KindError, Content: content, Timestamp: Now()}
}

// IsTerminal reports whether the entry ends a pending generation.
func (e Entry) IsTerminal() bool {
	return e.Kind == KindError || (e.Kind == KindSystem && e.Status == "completed")
}
