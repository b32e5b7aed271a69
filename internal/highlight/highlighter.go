// Package highlight renders generated files and change patches for the
// terminal.
package highlight

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"chatdev/internal/session"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// DefaultStyle is used when the configured style is empty or unknown.
const DefaultStyle = "monokai"

// Highlighter colors source code with chroma.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
}

// New creates a highlighter for a chroma style name such as "monokai",
// "dracula" or "github-dark".
func New(style string) *Highlighter {
	s := styles.Get(style)
	if style == "" || s == nil || s == styles.Fallback {
		s = styles.Get(DefaultStyle)
	}
	return &Highlighter{
		style:     s,
		formatter: formatters.Get("terminal256"),
	}
}

// Highlight colors code as lang. On any lexer failure the code comes back
// unchanged.
func (h *Highlighter) Highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return buf.String()
}

var lineNumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

// File renders a generated file with line numbers.
func (h *Highlighter) File(f session.File) string {
	name := f.Path
	if name == "" {
		name = f.Name
	}

	lines := strings.Split(h.Highlight(f.Content, DetectLanguage(name)), "\n")
	width := len(fmt.Sprint(len(lines)))

	var out strings.Builder
	for i, line := range lines {
		out.WriteString(lineNumStyle.Render(fmt.Sprintf("%*d", width, i+1)))
		out.WriteString(" │ ")
		out.WriteString(line)
		if i < len(lines)-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// Patch colors a line-oriented patch produced by the preview tracker.
func Patch(patch string) string {
	lines := strings.Split(patch, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			lines[i] = headerStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		case line != "":
			lines[i] = contextStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// languages covers what the generation service usually emits.
var languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".jsx":  "jsx",
	".tsx":  "tsx",
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".json": "json",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".sh":   "bash",
	".go":   "go",
	".java": "java",
	".sql":  "sql",
	".txt":  "text",
}

// DetectLanguage maps a file name to a chroma lexer name, "text" when
// nothing matches.
func DetectLanguage(filename string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(filename))]; ok {
		return lang
	}
	switch strings.ToLower(filepath.Base(filename)) {
	case "dockerfile":
		return "docker"
	case "makefile":
		return "makefile"
	case "requirements.txt":
		return "text"
	}
	if lexer := lexers.Match(filename); lexer != nil {
		return lexer.Config().Name
	}
	return "text"
}
