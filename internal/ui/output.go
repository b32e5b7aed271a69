package ui

import (
	"strings"

	"chatdev/internal/chat"

	"github.com/charmbracelet/glamour"
)

// ChatRenderer turns conversation entries into terminal text. Agent
// messages are markdown and go through glamour.
type ChatRenderer struct {
	styles   *Styles
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewChatRenderer creates a renderer for a glamour standard style.
func NewChatRenderer(styles *Styles, markdownStyle string) *ChatRenderer {
	if markdownStyle == "" {
		markdownStyle = "dark"
	}
	r := &ChatRenderer{styles: styles, style: markdownStyle}
	r.SetWidth(80)
	return r
}

// SetWidth rebuilds the markdown renderer for a new wrap width.
func (r *ChatRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.renderer != nil {
		return
	}
	r.width = width
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		renderer = nil
	}
	r.renderer = renderer
}

// Render renders all entries separated by blank lines.
func (r *ChatRenderer) Render(entries []chat.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.Entry(e))
		b.WriteString("\n")
	}
	return b.String()
}

// Entry renders one entry.
func (r *ChatRenderer) Entry(e chat.Entry) string {
	s := r.styles
	ts := s.Timestamp.Render(shortTime(e.Timestamp))

	switch e.Kind {
	case chat.KindUser:
		head := s.UserPrompt.Render(Icons["user"] + " You")
		if e.ProjectName != "" {
			head += s.Dim.Render(" · " + e.ProjectName)
		}
		return head + " " + ts + "\n" + e.Content

	case chat.KindAgent:
		role := e.Role
		if role == "" {
			role = "Agent"
		}
		head := s.AgentRole.Render(Icons["agent"]+" "+role) + " " + ts
		return head + "\n" + r.markdown(e.Content)

	case chat.KindSystem:
		if e.IsTerminal() {
			return s.Completed.Render(Icons["done"]+" "+e.Content) + " " + ts
		}
		return s.System.Render(Icons["system"]+" "+e.Content) + " " + ts

	case chat.KindError:
		return s.Error.Render(Icons["error"]+" "+e.Content) + " " + ts
	}
	return e.Content
}

func (r *ChatRenderer) markdown(content string) string {
	if r.renderer == nil {
		return r.styles.AgentText.Render(content)
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return r.styles.AgentText.Render(content)
	}
	return strings.Trim(out, "\n")
}

// shortTime keeps the clock part of an ISO timestamp.
func shortTime(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 && len(ts) >= i+9 {
		return ts[i+1 : i+9]
	}
	return ts
}
