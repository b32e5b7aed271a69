package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetDedupsKeepingFirstPosition(t *testing.T) {
	s := NewSet(
		Session{ID: "a", Status: StatusCreated},
		Session{ID: "b"},
		Session{ID: "a", Status: StatusCompleted},
	)

	assert.Equal(t, []string{"a", "b"}, s.IDs())
	got, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestSetIsCopyOnWrite(t *testing.T) {
	base := NewSet(Session{ID: "a"}, Session{ID: "b"})

	grown := base.Put(Session{ID: "c"})
	shrunk := base.Remove("a")
	replaced := base.Put(Session{ID: "b", Status: StatusRunning})

	assert.Equal(t, []string{"a", "b"}, base.IDs())
	assert.Equal(t, []string{"a", "b", "c"}, grown.IDs())
	assert.Equal(t, []string{"b"}, shrunk.IDs())

	orig, _ := base.Get("b")
	assert.Empty(t, orig.Status)
	upd, _ := replaced.Get("b")
	assert.Equal(t, StatusRunning, upd.Status)

	items := base.Items()
	items[0].ID = "mutated"
	assert.True(t, base.Contains("a"))
}

func TestSetRemoveMissing(t *testing.T) {
	s := NewSet(Session{ID: "a"})
	assert.Equal(t, s.IDs(), s.Remove("zzz").IDs())
	assert.Equal(t, 0, Set{}.Remove("a").Len())
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, Session{Status: StatusCompleted}.IsTerminal())
	assert.True(t, Session{Status: StatusError}.IsTerminal())
	assert.False(t, Session{Status: StatusRunning}.IsTerminal())
}
