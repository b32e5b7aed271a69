package preview

import (
	"path"
	"strings"

	"chatdev/internal/session"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter selects files by doublestar glob. An empty Include accepts every
// path; Exclude always wins.
type Filter struct {
	Include []string
	Exclude []string
}

// DefaultExclude hides build noise the service sometimes ships.
var DefaultExclude = []string{
	"**/__pycache__/**",
	"**/*.pyc",
	"**/.DS_Store",
	"**/node_modules/**",
}

// Match reports whether p passes the filter. Invalid patterns never match.
func (f Filter) Match(p string) bool {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")

	for _, pat := range f.Exclude {
		if ok, _ := doublestar.Match(pat, p); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pat := range f.Include {
		if ok, _ := doublestar.Match(pat, p); ok {
			return true
		}
	}
	return false
}

// Apply returns the files that pass the filter, keeping order.
func (f Filter) Apply(files []session.File) []session.File {
	out := make([]session.File, 0, len(files))
	for _, file := range files {
		if f.Match(fileKey(file)) {
			out = append(out, file)
		}
	}
	return out
}

// Validate reports the first malformed pattern.
func (f Filter) Validate() error {
	for _, pat := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return &PatternError{Pattern: pat}
		}
	}
	return nil
}

// PatternError is a malformed glob.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid glob pattern: " + e.Pattern
}

// entryPoints are tried in order when choosing the file to preview first.
var entryPoints = []string{"index.html", "main.py", "app.py"}

// EntryPoint picks the file a preview should open with: index.html, then
// main.py, then app.py, then the first file.
func EntryPoint(files []session.File) (session.File, bool) {
	if len(files) == 0 {
		return session.File{}, false
	}
	for _, name := range entryPoints {
		for _, f := range files {
			if f.Name == name || path.Base(fileKey(f)) == name {
				return f, true
			}
		}
	}
	return files[0], true
}
