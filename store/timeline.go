package store

import (
	"peertalk/models"
)

// dayFormat is the day-marker label. Markers compare by calendar day of the
// normalized timestamp, in the timestamp's own location.
const dayFormat = "2006-01-02"

// Entry is one row of the presentation timeline: either a day marker or a
// message, never both.
type Entry struct {
	Day     string
	Message *models.Message
}

// Timeline returns the ordered messages interleaved with day markers. A
// marker is emitted whenever the calendar day changes while iterating in
// order, in the same pass as the messages, so grouping is deterministic for
// a fixed input sequence.
func (s *Store) Timeline() []Entry {
	msgs := s.Messages()

	entries := make([]Entry, 0, len(msgs)+1)
	lastDay := ""
	for i := range msgs {
		day := msgs[i].SentAt.Format(dayFormat)
		if day != lastDay {
			entries = append(entries, Entry{Day: day})
			lastDay = day
		}
		entries = append(entries, Entry{Message: &msgs[i]})
	}
	return entries
}
