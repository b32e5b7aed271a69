package ui

import (
	"context"

	"chatdev/internal/client"
	"chatdev/internal/config"
	"chatdev/internal/preview"
	"chatdev/internal/session"
	"chatdev/internal/state"
)

// Controller is the part of the application the TUI drives.
type Controller interface {
	Snapshot() state.State
	SubmitTask(ctx context.Context, task, projectName string) (session.Session, error)
	RefreshSessions(ctx context.Context) ([]session.Session, error)
	SelectSession(id string) error
	DeleteSession(ctx context.Context, id string) error
	RefreshPreview(ctx context.Context) ([]preview.Change, error)
	Preview() *preview.Tracker
	SetCredential(provider, secret string)
	SetModel(sel config.ModelSelection) error
	Health(ctx context.Context) (client.Health, error)
}

// Mode is the screen currently shown.
type Mode int

const (
	ModeChat Mode = iota
	ModeSessions
	ModePreview
	ModeAPIKey
	ModeModel
)

func (m Mode) String() string {
	switch m {
	case ModeChat:
		return "chat"
	case ModeSessions:
		return "sessions"
	case ModePreview:
		return "preview"
	case ModeAPIKey:
		return "api key"
	case ModeModel:
		return "model"
	default:
		return "unknown"
	}
}

// Message types for communication.
type (
	// StateMsg carries the latest state snapshot.
	StateMsg struct {
		State state.State
	}
	// FinishedMsg reports that a session completed generation.
	FinishedMsg struct {
		SessionID string
	}
	submitDoneMsg struct {
		err error
	}
	sessionsMsg struct {
		err error
	}
	deleteDoneMsg struct {
		id  string
		err error
	}
	previewMsg struct {
		changes []preview.Change
		err     error
	}
	healthMsg struct {
		status string
		err    error
	}
	toastMsg string
)

// modelOption is one provider/model row of the model selector.
type modelOption struct {
	Selection config.ModelSelection
	Label     string
}

func modelOptions() []modelOption {
	var out []modelOption
	for _, p := range config.Catalog {
		for _, m := range p.Models {
			out = append(out, modelOption{
				Selection: config.ModelSelection{Provider: p.ID, Model: m.ID},
				Label:     p.Name + " · " + m.Name + " (" + m.Description + ")",
			})
		}
	}
	return out
}
