package chat

// Log is an append-only, insertion-ordered conversation. It is a value:
// Append returns a new Log and never touches entries visible through older
// copies.
type Log struct {
	entries []Entry
}

// NewLog builds a log from entries.
func NewLog(entries ...Entry) Log {
	var l Log
	for _, e := range entries {
		l = l.Append(e)
	}
	return l
}

// Append returns the log with e added at the end.
func (l Log) Append(e Entry) Log {
	entries := make([]Entry, len(l.entries), len(l.entries)+1)
	copy(entries, l.entries)
	return Log{entries: append(entries, e)}
}

// Len returns the number of entries.
func (l Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of all entries in order.
func (l Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns a copy of the entries from index i on.
func (l Log) Since(i int) []Entry {
	if i < 0 {
		i = 0
	}
	if i >= len(l.entries) {
		return nil
	}
	out := make([]Entry, len(l.entries)-i)
	copy(out, l.entries[i:])
	return out
}

// Last returns the newest entry.
func (l Log) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// HasPendingGeneration is true between the latest user entry and the next
// completed status or error entry.
func (l Log) HasPendingGeneration() bool {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.IsTerminal() {
			return false
		}
		if e.Kind == KindUser {
			return true
		}
	}
	return false
}
