package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
)

// LocalIDPrefix marks client-generated temporary message ids. A local id is
// never reused and never survives server reconciliation.
const LocalIDPrefix = "local-"

// NewLocalID returns a temporary id for an optimistic message.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether the id was generated by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Video is a video attachment reference on a message.
type Video struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Message is the canonical message record for one conversation. Messages come
// from three sources: history fetch, live push events, and the local send
// pipeline (optimistic, awaiting server confirmation).
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"message"`
	Images     []string  `json:"images,omitempty"`
	Videos     []Video   `json:"videos,omitempty"`
	SentAt     time.Time `json:"sentAt"`
	Read       bool      `json:"read,omitempty"`
	Optimistic bool      `json:"-"`
}

// wireMessage mirrors Message on the wire. History records carry the
// timestamp as "sentAt", live push events as "createdAt"; both are folded
// into SentAt here and nothing else ever branches on the field name.
type wireMessage struct {
	ID         string   `json:"id"`
	SenderID   string   `json:"senderId"`
	ReceiverID string   `json:"receiverId"`
	Text       string   `json:"message"`
	Images     []string `json:"images"`
	Videos     []Video  `json:"videos"`
	SentAt     string   `json:"sentAt"`
	CreatedAt  string   `json:"createdAt"`
	Read       bool     `json:"read"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	raw := w.SentAt
	if raw == "" {
		raw = w.CreatedAt
	}

	var sentAt time.Time
	if raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return err
		}
		sentAt = t
	}

	*m = Message{
		ID:         w.ID,
		SenderID:   w.SenderID,
		ReceiverID: w.ReceiverID,
		Text:       w.Text,
		Images:     w.Images,
		Videos:     w.Videos,
		SentAt:     sentAt,
		Read:       w.Read,
	}
	return nil
}

// HasAttachments reports whether the message carries at least one image or
// video reference.
func (m Message) HasAttachments() bool {
	return len(m.Images) > 0 || len(m.Videos) > 0
}

// Sendable reports whether the message has text or at least one attachment.
// A message with neither cannot be constructed for sending; a message in the
// store may legitimately have both.
func (m Message) Sendable() bool {
	return m.Text != "" || m.HasAttachments()
}

// SameAs reports whether two messages describe the same logical send. Ids are
// compared as strings. When ids differ, identical text plus timestamps equal
// to the millisecond also count as a match: a live-pushed event and the
// locally inserted optimistic copy of the same send carry different ids.
// Two genuinely distinct messages with identical text sent within the same
// millisecond would be collapsed by this rule; that window is an accepted
// trade-off, removing it reopens duplicates on reconnect.
func (m Message) SameAs(other Message) bool {
	if m.ID != "" && m.ID == other.ID {
		return true
	}
	return m.Text == other.Text &&
		m.SentAt.UnixMilli() == other.SentAt.UnixMilli()
}
