package highlight

import (
	"strings"
	"testing"

	"chatdev/internal/session"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"main.py":          "python",
		"web/index.HTML":   "html",
		"Dockerfile":       "docker",
		"requirements.txt": "text",
		"noext":            "text",
	}
	for name, want := range tests {
		assert.Equal(t, want, DetectLanguage(name), name)
	}
}

func TestHighlightKeepsText(t *testing.T) {
	h := New("no-such-style")
	out := h.Highlight("def f():\n    return 1\n", "python")
	assert.Contains(t, out, "def")
	assert.Contains(t, out, "return")
}

func TestFileNumbersLines(t *testing.T) {
	h := New("")
	out := h.File(session.File{Name: "a.txt", Content: "one\ntwo"})
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "one")
	assert.Contains(t, lines[1], "2")
}

func TestPatch(t *testing.T) {
	out := Patch("--- a\n+++ a\n keep\n-old\n+new\n")
	assert.Contains(t, out, "old")
	assert.Contains(t, out, "new")
	assert.Len(t, strings.Split(out, "\n"), 6)
}
