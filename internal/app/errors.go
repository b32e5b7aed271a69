package app

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"chatdev/internal/config"
)

var (
	// ErrStale is returned when a result arrives for a session that is no
	// longer current; the result has not been applied.
	ErrStale = errors.New("result is for a session that is no longer current")

	// ErrNoSession means the operation needs a current session.
	ErrNoSession = errors.New("no session selected")

	// ErrEmptyTask rejects a blank task description.
	ErrEmptyTask = errors.New("task description is empty")
)

// UnknownSessionError is returned when selecting an id that is not in the
// session set.
type UnknownSessionError struct {
	ID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("unknown session %q", e.ID)
}

// DefaultProjectName derives a project name from the first words of a task,
// e.g. "Build a todo app" becomes "BuildATodo".
func DefaultProjectName(task string) string {
	var b strings.Builder
	words := 0
	for _, w := range strings.Fields(task) {
		w = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, w)
		if w == "" {
			continue
		}
		runes := []rune(w)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
		if words++; words == 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "Project"
	}
	return b.String()
}

func providerName(id string) string {
	if p, ok := config.LookupProvider(id); ok {
		return p.Name
	}
	return id
}
