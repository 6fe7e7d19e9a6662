// Package store holds calendar events in memory, in insertion order.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"webcal/internal/model"
)

// PaletteColor picks the color for the index-th event added without one.
func PaletteColor(palette []string, index int) string {
	if len(palette) == 0 {
		return ""
	}
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

// Store is the single owner of calendar events. Callers always receive copies.
type Store struct {
	mu      sync.RWMutex
	events  []model.CalendarEvent
	index   map[string]int // id -> position in events
	retired map[string]struct{}
	palette []string
	added   int // events ever added; drives palette rotation

	newID func() string
}

// New creates an empty store that colors new events from palette.
func New(palette []string) *Store {
	return &Store{
		index:   make(map[string]int),
		retired: make(map[string]struct{}),
		palette: append([]string(nil), palette...),
		newID:   uuid.NewString,
	}
}

// List returns a snapshot of all events in insertion order.
func (s *Store) List() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) Get(id string) (model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return model.CalendarEvent{}, fmt.Errorf("get %q: %w", id, model.ErrNotFound)
	}
	return s.events[pos], nil
}

// Add appends a new event with a fresh id. Any ID on the input is ignored.
func (s *Store) Add(in model.EventInput) model.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := in.Event(s.freshIDLocked())
	if ev.Color == "" {
		ev.Color = PaletteColor(s.palette, s.added)
	}
	s.appendLocked(ev)
	return ev
}

// Update replaces the event sharing ev.ID, keeping its position.
func (s *Store) Update(ev model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[ev.ID]
	if !ok {
		return fmt.Errorf("update %q: %w", ev.ID, model.ErrNotFound)
	}
	s.events[pos] = ev
	return nil
}

// Remove deletes the event with id. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[id]
	if !ok {
		return
	}
	s.events = append(s.events[:pos], s.events[pos+1:]...)
	delete(s.index, id)
	s.retired[id] = struct{}{}
	for i := pos; i < len(s.events); i++ {
		s.index[s.events[i].ID] = i
	}
}

// Import appends externally sourced events. An incoming id is kept when it
// has never been used; otherwise a fresh one is assigned. Returns the
// events as stored.
func (s *Store) Import(events []model.CalendarEvent) []model.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if !s.freeLocked(ev.ID) {
			ev.ID = s.freshIDLocked()
		}
		if ev.Color == "" {
			ev.Color = PaletteColor(s.palette, s.added)
		}
		s.appendLocked(ev)
		out = append(out, ev)
	}
	return out
}

func (s *Store) appendLocked(ev model.CalendarEvent) {
	s.index[ev.ID] = len(s.events)
	s.events = append(s.events, ev)
	s.added++
}

// freeLocked reports whether id is neither live nor retired by Remove.
func (s *Store) freeLocked(id string) bool {
	if id == "" {
		return false
	}
	if _, taken := s.index[id]; taken {
		return false
	}
	_, retired := s.retired[id]
	return !retired
}

func (s *Store) freshIDLocked() string {
	for {
		if id := s.newID(); s.freeLocked(id) {
			return id
		}
	}
}
