package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessage_UnmarshalJSON_TimestampNames(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Time
	}{
		{
			name: "history spelling",
			body: `{"id":"1","senderId":"A","receiverId":"B","message":"hi","sentAt":"2024-01-01T10:00:00Z"}`,
			want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "push spelling",
			body: `{"id":"2","senderId":"A","receiverId":"B","message":"hi","createdAt":"2024-01-01T10:00:00Z"}`,
			want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "sentAt wins when both present",
			body: `{"id":"3","message":"hi","sentAt":"2024-01-01T10:00:00Z","createdAt":"2024-06-01T10:00:00Z"}`,
			want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			if err := json.Unmarshal([]byte(tt.body), &m); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if !m.SentAt.Equal(tt.want) {
				t.Errorf("expected SentAt %v, got %v", tt.want, m.SentAt)
			}
		})
	}
}

func TestMessage_UnmarshalJSON_BadTimestamp(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"id":"1","sentAt":"yesterday"}`), &m)
	if err == nil {
		t.Fatal("expected error for bad timestamp")
	}
}

func TestLocalIDs(t *testing.T) {
	id := NewLocalID()
	if !IsLocalID(id) {
		t.Errorf("NewLocalID result %q not recognized as local", id)
	}
	if IsLocalID("42") {
		t.Error("server id recognized as local")
	}
	if id == NewLocalID() {
		t.Error("local ids must be unique")
	}
}

func TestMessage_SameAs(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Message
		want bool
	}{
		{
			name: "same id",
			a:    Message{ID: "1", Text: "hi", SentAt: at},
			b:    Message{ID: "1", Text: "different", SentAt: at.Add(time.Hour)},
			want: true,
		},
		{
			name: "different ids, same text and millisecond",
			a:    Message{ID: LocalIDPrefix + "x", Text: "hi", SentAt: at},
			b:    Message{ID: "42", Text: "hi", SentAt: at.Add(200 * time.Microsecond)},
			want: true,
		},
		{
			name: "same text, different millisecond",
			a:    Message{ID: "1", Text: "hi", SentAt: at},
			b:    Message{ID: "2", Text: "hi", SentAt: at.Add(time.Millisecond)},
			want: false,
		},
		{
			name: "different text, same millisecond",
			a:    Message{ID: "1", Text: "hi", SentAt: at},
			b:    Message{ID: "2", Text: "hello", SentAt: at},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.SameAs(tt.b); got != tt.want {
				t.Errorf("SameAs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessage_Sendable(t *testing.T) {
	if (Message{}).Sendable() {
		t.Error("empty message must not be sendable")
	}
	if !(Message{Text: "hi"}).Sendable() {
		t.Error("text-only message must be sendable")
	}
	if !(Message{Images: []string{"u"}}).Sendable() {
		t.Error("attachment-only message must be sendable")
	}
}
