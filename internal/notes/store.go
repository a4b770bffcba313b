// Package notes holds the client-side note collection and the search views
// derived from it.
package notes

import (
	"errors"
	"sync"

	"github.com/xaenox/scribly/internal/models"
)

var (
	ErrMissingID   = errors.New("note has no id")
	ErrDuplicateID = errors.New("note id already present")
	ErrNotFound    = errors.New("note not found")
	ErrClosed      = errors.New("note store is closed")
)

// Store is the ordered in-memory collection of one session's notes. It is
// only mutated through ReplaceAll, Insert, Replace and Remove.
type Store struct {
	mu     sync.RWMutex
	notes  []models.Note
	closed bool
}

func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps in the result of a list fetch. Notes without an id are
// dropped and a repeated id keeps its first occurrence.
func (s *Store) ReplaceAll(notes []models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	seen := make(map[string]struct{}, len(notes))
	next := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID == "" {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		next = append(next, n)
	}
	s.notes = next
	return nil
}

// Insert appends a confirmed note.
func (s *Store) Insert(note models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if note.ID == "" {
		return ErrMissingID
	}
	if s.indexOf(note.ID) >= 0 {
		return ErrDuplicateID
	}
	s.notes = append(s.notes, note)
	return nil
}

// Replace overwrites the note with the given id in place. The stored note
// always keeps id, whatever note.ID says.
func (s *Store) Replace(id string, note models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	note.ID = id
	s.notes[i] = note
	return nil
}

// Remove deletes the note with the given id and reports whether it was there.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	return true, nil
}

// Notes returns a copy of the collection in order.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *Store) Get(id string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.notes[i], true
	}
	return models.Note{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Close tears the store down. Responses that arrive afterwards are discarded
// by their reconciliation step.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.notes = nil
}

func (s *Store) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

func (s *Store) indexOf(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}
