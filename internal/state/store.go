package state

import (
	"sync"
)

// Observer is called with every new snapshot.
type Observer func(State)

// Store owns the State and serializes every transition.
type Store struct {
	// dispatchMu orders whole dispatches, notification included, so
	// observers see snapshots in transition order.
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	observers map[int]Observer
	order     []int
	nextID    int
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	return &Store{
		state:     initial,
		observers: make(map[int]Observer),
	}
}

// Snapshot returns the latest state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies actions as a single transition, then calls every
// observer synchronously with the result. Observers must not call Dispatch.
func (s *Store) Dispatch(actions ...Action) State {
	if len(actions) == 0 {
		return s.Snapshot()
	}
	return s.Update(func(State) []Action { return actions })
}

// Update is Dispatch with the actions chosen from the state they will apply
// to, so a check and its effect form one transition. plan must be pure.
// Nothing is applied or notified when plan returns no actions.
func (s *Store) Update(plan func(State) []Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := s.state
	actions := plan(next)
	if len(actions) == 0 {
		s.mu.Unlock()
		return next
	}
	for _, a := range actions {
		next = Reduce(next, a)
	}
	s.state = next
	observers := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return next
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			delete(s.observers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}
