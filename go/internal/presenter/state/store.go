package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownValue is returned for names that were never registered.
	ErrUnknownValue = errors.New("unknown value name")
	// ErrReadOnly is returned when setting a value clients may only read.
	ErrReadOnly = errors.New("value is read-only")
	// ErrInvalidKind is returned when a payload does not match the declared kind.
	ErrInvalidKind = errors.New("payload does not match value kind")
	// ErrDuplicateValue is returned when a name is registered twice.
	ErrDuplicateValue = errors.New("value already registered")
)

// Store maps registered value names to their accessors.
// Reads never block on writers for longer than a map lookup.
type Store struct {
	mu     sync.RWMutex
	values map[string]Accessor
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]Accessor)}
}

// Register adds an accessor under name.
func (s *Store) Register(name string, a Accessor) error {
	if err := validName(name); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("register %q: nil accessor", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateValue)
	}
	s.values[name] = a
	return nil
}

// Declare registers a Cell of the given kind and initial payload.
func (s *Store) Declare(name string, kind Kind, initial json.RawMessage) error {
	cell, err := NewCell(kind, initial)
	if err != nil {
		return fmt.Errorf("declare %q: %w", name, err)
	}
	return s.Register(name, cell)
}

// Registered reports whether name has an accessor.
func (s *Store) Registered(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[name]
	return ok
}

// Get returns the current payload for name. Unknown or unset names miss.
func (s *Store) Get(name string) (json.RawMessage, bool) {
	s.mu.RLock()
	a, ok := s.values[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return a.Get()
}

// Set overwrites the payload for name.
func (s *Store) Set(name string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.values[name]
	if !ok {
		return fmt.Errorf("set %q: %w", name, ErrUnknownValue)
	}
	if err := a.Set(raw); err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	return nil
}

// Names returns the registered names in order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies every present payload.
func (s *Store) Snapshot() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(s.values))
	for name, a := range s.values {
		if v, ok := a.Get(); ok {
			out[name] = v
		}
	}
	return out
}

func validName(name string) error {
	if name == "" {
		return errors.New("value name is empty")
	}
	if strings.HasSuffix(name, "-get") || strings.HasSuffix(name, "-set") || strings.HasSuffix(name, "-auth") {
		return fmt.Errorf("value name %q uses a reserved suffix", name)
	}
	return nil
}
