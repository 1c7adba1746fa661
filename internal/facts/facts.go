// internal/facts/facts.go
package facts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrFactExists is returned by Store.Add when the fact is already present.
var ErrFactExists = errors.New("fact already exists")

// State is a plain fact view: fact name to strength. A key is only ever present
// with a strength greater than zero.
//
// State is the unit the planner copies per search branch, so it carries no lock.
type State map[string]int

// Has reports whether the fact is present.
func (s State) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Clone returns an independent copy. Cloning a nil State yields an empty, non-nil State.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ContainsAll reports whether every key of required is present in s.
// Only presence matters, the magnitude is bookkeeping.
func (s State) ContainsAll(required State) bool {
	for k := range required {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether any key of other is present in s.
func (s State) ContainsAny(other State) bool {
	for k := range other {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// AddAbsent copies each fact of other into s unless s already holds it.
func (s State) AddAbsent(other State) {
	for k, v := range other {
		if v <= 0 {
			continue
		}
		if _, ok := s[k]; !ok {
			s[k] = v
		}
	}
}

// Keys returns the fact names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the state deterministically, e.g. "{HasFood:1 IsNight:1}".
func (s State) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", k, s[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Store is a mutable fact store. The world owns one shared Store and every agent
// owns a private one for its beliefs; both have identical semantics.
//
// Invariant: no stored strength is ever <= 0.
type Store struct {
	mu     sync.RWMutex
	states State
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{states: make(State)}
}

// NewStoreFrom creates a store seeded with the positive entries of initial.
func NewStoreFrom(initial State) *Store {
	s := NewStore()
	for k, v := range initial {
		if v > 0 {
			s.states[k] = v
		}
	}
	return s
}

// Has reports whether the fact is present.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states.Has(name)
}

// Get returns the strength of a fact and whether it is present.
func (s *Store) Get(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.states[name]
	return v, ok
}

// Add inserts a fresh fact. It fails with ErrFactExists if the fact is already held.
// Adding a non-positive strength is a no-op.
func (s *Store) Add(name string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[name]; ok {
		return fmt.Errorf("add %q: %w", name, ErrFactExists)
	}
	if value > 0 {
		s.states[name] = value
	}
	return nil
}

// Modify adds delta to the fact, creating it when absent. A result <= 0 removes the fact.
func (s *Store) Modify(name string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.states[name] + delta
	if next <= 0 {
		delete(s.states, name)
		return
	}
	s.states[name] = next
}

// Set assigns an absolute strength, creating the fact when absent. A value <= 0 removes it.
func (s *Store) Set(name string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value <= 0 {
		delete(s.states, name)
		return
	}
	s.states[name] = value
}

// Remove deletes the fact. Removing an absent fact is safe.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, name)
}

// Clear drops every fact.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(State)
}

// Len returns the number of facts held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Keys returns the held fact names, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states.Keys()
}

// Snapshot returns a copy of the current facts that the caller may mutate freely.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states.Clone()
}

// Merge returns a single view of world and beliefs. World facts come first and a
// belief only contributes a fact the world does not already hold.
// Either store may be nil.
func Merge(world, beliefs *Store) State {
	var merged State
	if world != nil {
		merged = world.Snapshot()
	} else {
		merged = make(State)
	}
	if beliefs != nil {
		merged.AddAbsent(beliefs.Snapshot())
	}
	return merged
}
