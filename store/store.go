package store

import (
	"sort"
	"sync"

	"peertalk/models"
)

// Store holds the single time-ordered, duplicate-free view of all messages
// belonging to the open conversation. History fetch, live push events and
// optimistic local inserts all land here; the dedup rule in Merge is what
// keeps the push-vs-fetch race from producing visible duplicates.
//
// Messages are never deleted during a session. Switching conversations
// discards the whole store and starts empty.
type Store struct {
	messages []models.Message

	mux sync.RWMutex
}

func New() *Store {
	return &Store{}
}

// LoadHistory replaces the store contents with the server-provided list,
// sorted ascending by normalized timestamp. Ties keep their original order.
func (s *Store) LoadHistory(messages []models.Message) {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.messages = make([]models.Message, len(messages))
	copy(s.messages, messages)

	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].SentAt.Before(s.messages[j].SentAt)
	})
}

// Merge inserts one message in timestamp order. If an existing entry is the
// same logical message (see models.Message.SameAs) the incoming one is
// dropped, with one exception: an authoritative message matching an
// optimistic entry supersedes it in place, so the temporary copy is replaced
// rather than duplicated. Returns true if the store changed.
func (s *Store) Merge(msg models.Message) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	for i, existing := range s.messages {
		if !existing.SameAs(msg) {
			continue
		}
		if existing.Optimistic && !msg.Optimistic {
			s.messages[i] = msg
			return true
		}
		return false
	}

	// Insert after all entries with timestamp <= msg's, keeping arrival
	// order stable for equal timestamps.
	i := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].SentAt.After(msg.SentAt)
	})
	s.messages = append(s.messages, models.Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = msg
	return true
}

// Messages returns a copy of the ordered message list.
func (s *Store) Messages() []models.Message {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()

	return len(s.messages)
}
