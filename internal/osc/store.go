package osc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound reports a parameter name the store has never seen.
var ErrNotFound = errors.New("parameter not found")

// Store is the mutex-guarded source of truth for the peer's known
// parameters. The map is additive for the process lifetime; parameters
// are created or replaced, never individually deleted.
type Store struct {
	mu     sync.Mutex
	params map[string]Parameter
	notify func([]Parameter)
}

// NewStore returns an empty parameter store.
func NewStore() *Store {
	return &Store{params: make(map[string]Parameter)}
}

// Attach wires the host notification callback. The store is built first
// and attached before first use; until then, notifications are dropped.
func (s *Store) Attach(notify func([]Parameter)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = notify
}

// List returns a point-in-time snapshot of all parameters, sorted by name.
func (s *Store) List() []Parameter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the last-known parameter for name.
func (s *Store) Get(name string) (Parameter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.params[name]
	return p, ok
}

// Set updates the value of an already-registered parameter. Names the
// store has never seen fail with ErrNotFound.
func (s *Store) Set(name string, value float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p.Value = value
	s.params[name] = p
	return nil
}

// Upsert creates or fully replaces a parameter and fires the host
// notification with the complete current snapshot. An unattached
// notification channel is not an error.
func (s *Store) Upsert(p Parameter) {
	s.mu.Lock()
	s.params[p.Name] = p
	notify := s.notify
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// snapshotLocked copies the parameter map; callers hold s.mu.
func (s *Store) snapshotLocked() []Parameter {
	out := make([]Parameter, 0, len(s.params))
	for _, p := range s.params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
