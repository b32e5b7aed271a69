package ui

import (
	"fmt"
	"strings"

	"chatdev/internal/security"

	"github.com/charmbracelet/lipgloss"
)

// safePadding calculates padding ensuring it's never negative.
func safePadding(available, left, right int) int {
	padding := available - left - right
	if padding < 1 {
		return 1
	}
	return padding
}

// renderStatusBar shows connection, model, current session and key state.
func (m Model) renderStatusBar() string {
	s := m.styles
	st := m.state

	conn := s.Offline.Render(Icons["offline"] + " offline")
	if st.Connected {
		conn = s.Connected.Render(Icons["connected"] + " live")
	}

	var left []string
	left = append(left, conn, st.Model.String())
	if cur, ok := st.Current(); ok {
		left = append(left, fmt.Sprintf("%s [%s]", cur.ProjectName, cur.Status))
	}
	if st.Generating {
		left = append(left, s.Spinner.Render(m.spinner.View()+" generating"))
	}

	key := s.Error.Render("no key")
	if st.ActiveCredential() != "" {
		key = s.Dim.Render("key " + security.MaskKey(st.ActiveCredential()))
	}
	right := key + s.Dim.Render(" · "+m.mode.String())

	leftStr := strings.Join(left, s.Dim.Render(" │ "))
	pad := safePadding(m.width, lipgloss.Width(leftStr), lipgloss.Width(right))
	return s.StatusBar.Width(m.width).Render(leftStr + strings.Repeat(" ", pad) + right)
}

// renderHelp lists the key bindings of the current mode.
func (m Model) renderHelp() string {
	var help string
	switch m.mode {
	case ModeChat:
		help = "enter submit · tab switch field · ctrl+s sessions · ctrl+f files · ctrl+k api key · ctrl+o model · ctrl+y copy · ctrl+t health · ctrl+c quit"
	case ModeSessions:
		help = "↑/↓ move · enter open · d delete · r refresh · esc back"
	case ModePreview:
		help = "←/→ file · ↑/↓ scroll · p changes · r refresh · c copy file · esc back"
	case ModeAPIKey:
		help = "enter save · empty removes · esc cancel"
	case ModeModel:
		help = "↑/↓ move · enter select · esc cancel"
	}
	return m.styles.Dim.Render(help)
}
