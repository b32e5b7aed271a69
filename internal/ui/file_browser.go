package ui

import (
	"fmt"
	"strings"

	"chatdev/internal/highlight"
	"chatdev/internal/preview"

	"github.com/charmbracelet/lipgloss"
)

// renderPreview renders the generated-files pane: a tab row, then either
// the selected file or its patch since the previous fetch.
func (m Model) renderPreview() string {
	s := m.styles
	if len(m.files) == 0 {
		return s.Dim.Render("No generated files yet.")
	}

	f, _ := m.currentFile()
	header := lipgloss.NewStyle().Width(m.width).Render(m.renderFileTabs())

	info := fmt.Sprintf("%s · %s · %d bytes", f.Path, highlight.DetectLanguage(f.Path), f.Size)
	if c, ok := m.changes[f.Path]; ok {
		info += " · " + c.String()
	}
	body := m.highlighter.File(f)
	if m.showPatch {
		body = m.renderPatch(f.Path)
	}
	return header + "\n" + s.Dim.Render(info) + "\n\n" + body
}

func (m Model) renderFileTabs() string {
	s := m.styles
	tabs := make([]string, 0, len(m.files))
	for i, f := range m.files {
		name := f.Path
		if c, ok := m.changes[f.Path]; ok {
			name += changeMarker(c.Kind)
		}
		if i == m.fileIndex {
			tabs = append(tabs, s.Selected.Render("["+name+"]"))
		} else {
			tabs = append(tabs, s.Normal.Render(name))
		}
	}
	return strings.Join(tabs, "  ")
}

func (m Model) renderPatch(path string) string {
	c, ok := m.changes[path]
	if !ok || c.Patch == "" {
		return m.styles.Dim.Render("No changes in " + path + " since the last refresh.")
	}
	return highlight.Patch(c.Patch)
}

func changeMarker(k preview.ChangeKind) string {
	switch k {
	case preview.Added:
		return " +"
	case preview.Modified:
		return " *"
	default:
		return ""
	}
}
