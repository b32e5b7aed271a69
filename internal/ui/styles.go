package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors for the UI theme.
var (
	ColorPrimary   = lipgloss.Color("#A78BFA") // Lavender
	ColorSecondary = lipgloss.Color("#22D3EE") // Cyan
	ColorSuccess   = lipgloss.Color("#059669")
	ColorWarning   = lipgloss.Color("#D97706")
	ColorError     = lipgloss.Color("#DC2626")
	ColorMuted     = lipgloss.Color("#9CA3AF")
	ColorText      = lipgloss.Color("#F1F5F9")
	ColorBorder    = lipgloss.Color("#1E293B")
	ColorDim       = lipgloss.Color("#6B7280")
	ColorRunning   = lipgloss.Color("#60A5FA")
	ColorInfo      = lipgloss.Color("#2DD4BF")
)

// Icons used in the conversation and status bar.
var Icons = map[string]string{
	"user":      "›",
	"agent":     "●",
	"system":    "ℹ",
	"error":     "✗",
	"done":      "✓",
	"connected": "◉",
	"offline":   "○",
}

// Styles contains all UI styles.
type Styles struct {
	Header      lipgloss.Style
	UserPrompt  lipgloss.Style
	AgentRole   lipgloss.Style
	AgentText   lipgloss.Style
	System      lipgloss.Style
	Completed   lipgloss.Style
	Error       lipgloss.Style
	Timestamp   lipgloss.Style
	StatusBar   lipgloss.Style
	Connected   lipgloss.Style
	Offline     lipgloss.Style
	Spinner     lipgloss.Style
	Dim         lipgloss.Style
	Selected    lipgloss.Style
	Normal      lipgloss.Style
	ModalTitle  lipgloss.Style
	ModalBorder lipgloss.Style
	InputLabel  lipgloss.Style
	Toast       lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		UserPrompt: lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true),

		AgentRole: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true),

		AgentText: lipgloss.NewStyle().
			Foreground(ColorText),

		System: lipgloss.NewStyle().
			Foreground(ColorInfo).
			Italic(true),

		Completed: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),

		Timestamp: lipgloss.NewStyle().
			Foreground(ColorDim),

		StatusBar: lipgloss.NewStyle().
			Foreground(ColorMuted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(ColorBorder),

		Connected: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		Offline: lipgloss.NewStyle().
			Foreground(ColorDim),

		Spinner: lipgloss.NewStyle().
			Foreground(ColorRunning),

		Dim: lipgloss.NewStyle().
			Foreground(ColorDim),

		Selected: lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true),

		Normal: lipgloss.NewStyle().
			Foreground(ColorMuted),

		ModalTitle: lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			MarginBottom(1),

		ModalBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1),

		InputLabel: lipgloss.NewStyle().
			Foreground(ColorMuted).
			Bold(true),

		Toast: lipgloss.NewStyle().
			Foreground(ColorWarning),
	}
}
