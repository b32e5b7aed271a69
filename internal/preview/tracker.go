// Package preview keeps the latest generated files of a session and reports
// what changed between two fetches.
package preview

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"chatdev/internal/session"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies a file change between two snapshots.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// Change describes one file that differs from the previous snapshot.
type Change struct {
	Kind    ChangeKind
	Path    string
	Patch   string // unified-style, line oriented
	Added   int    // lines
	Removed int    // lines
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s (+%d -%d)", c.Kind, c.Path, c.Added, c.Removed)
}

// Tracker holds the last snapshot of one session's files.
type Tracker struct {
	filter Filter

	mu        sync.Mutex
	sessionID string
	files     []session.File
	byPath    map[string]session.File
}

// NewTracker creates an empty tracker. Files rejected by filter are ignored.
func NewTracker(filter Filter) *Tracker {
	return &Tracker{filter: filter, byPath: make(map[string]session.File)}
}

// SessionID returns the session of the current snapshot.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Files returns the current snapshot in fetch order.
func (t *Tracker) Files() []session.File {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]session.File, len(t.files))
	copy(out, t.files)
	return out
}

// Reset forgets the snapshot.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = ""
	t.files = nil
	t.byPath = make(map[string]session.File)
}

// Update replaces the snapshot with files fetched for sessionID and returns
// the changes, sorted by path. Switching sessions starts from empty, so every
// file of the new session reports as added.
func (t *Tracker) Update(sessionID string, files []session.File) []Change {
	files = t.filter.Apply(files)

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.byPath
	if sessionID != t.sessionID {
		prev = map[string]session.File{}
	}

	next := make(map[string]session.File, len(files))
	var changes []Change
	for _, f := range files {
		p := fileKey(f)
		next[p] = f

		old, ok := prev[p]
		switch {
		case !ok:
			changes = append(changes, diffChange(Added, p, "", f.Content))
		case old.Content != f.Content:
			changes = append(changes, diffChange(Modified, p, old.Content, f.Content))
		}
	}
	for p, old := range prev {
		if _, ok := next[p]; !ok {
			changes = append(changes, diffChange(Removed, p, old.Content, ""))
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	t.sessionID = sessionID
	t.files = files
	t.byPath = next
	return changes
}

func fileKey(f session.File) string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}

// diffChange builds a line-level patch between two versions of a file.
func diffChange(kind ChangeKind, path, oldContent, newContent string) Change {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	c := Change{Kind: kind, Path: path}

	var patch strings.Builder
	fmt.Fprintf(&patch, "--- %s\n+++ %s\n", path, path)
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				patch.WriteString(" " + line + "\n")
			case diffmatchpatch.DiffDelete:
				patch.WriteString("-" + line + "\n")
				c.Removed++
			case diffmatchpatch.DiffInsert:
				patch.WriteString("+" + line + "\n")
				c.Added++
			}
		}
	}
	c.Patch = patch.String()
	return c
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
