// Package conversation holds the append-only transcript that is replayed to the
// backend on every send.
package conversation

import (
	"sync"

	"lumen/internal/models"
)

// Store is the ordered conversation log. Insertion order is replay order and
// turns are never modified or removed once appended.
type Store struct {
	mu   sync.RWMutex
	msgs []models.Message
}

// New returns a store seeded with restored history.
func New(history []models.Message) *Store {
	s := &Store{msgs: make([]models.Message, 0, len(history))}
	for _, m := range history {
		s.msgs = append(s.msgs, m.Clone())
	}
	return s
}

func (s *Store) Append(m models.Message) {
	s.mu.Lock()
	s.msgs = append(s.msgs, m.Clone())
	s.mu.Unlock()
}

// Messages returns a deep copy of the whole log.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.Clone()
	}
	return out
}

// Tail returns a copy of at most the last n turns; n <= 0 means all of them.
func (s *Store) Tail(n int) []models.Message {
	all := s.Messages()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Last returns the most recent turn, if any.
func (s *Store) Last() (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.msgs) == 0 {
		return models.Message{}, false
	}
	return s.msgs[len(s.msgs)-1].Clone(), true
}
