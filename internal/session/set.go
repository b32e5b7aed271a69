package session

// Set is an insertion-ordered collection of sessions with unique ids.
// Methods never modify the receiver's backing array: every change returns a
// new Set, so snapshots handed to observers stay valid.
type Set struct {
	items []Session
}

// NewSet builds a Set from sessions. A repeated id keeps its first position
// and its last value.
func NewSet(sessions ...Session) Set {
	var s Set
	for _, sess := range sessions {
		s = s.Put(sess)
	}
	return s
}

// Len returns the number of sessions.
func (s Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the sessions in insertion order.
func (s Set) Items() []Session {
	out := make([]Session, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns session ids in insertion order.
func (s Set) IDs() []string {
	ids := make([]string, len(s.items))
	for i, sess := range s.items {
		ids[i] = sess.ID
	}
	return ids
}

func (s Set) index(id string) int {
	for i, sess := range s.items {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the session with id.
func (s Set) Get(id string) (Session, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return Session{}, false
}

// Contains reports whether id is present.
func (s Set) Contains(id string) bool {
	return s.index(id) >= 0
}

// Put appends sess, or replaces the session with the same id in place.
func (s Set) Put(sess Session) Set {
	items := make([]Session, len(s.items), len(s.items)+1)
	copy(items, s.items)

	if i := s.index(sess.ID); i >= 0 {
		items[i] = sess
	} else {
		items = append(items, sess)
	}
	return Set{items: items}
}

// Remove drops id. Removing a missing id returns an equal Set.
func (s Set) Remove(id string) Set {
	i := s.index(id)
	if i < 0 {
		return s
	}

	items := make([]Session, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	items = append(items, s.items[i+1:]...)
	return Set{items: items}
}
