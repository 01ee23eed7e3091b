package readstate

import (
	"errors"
	"testing"
	"time"

	"peertalk/models"
)

// mapStore is an in-memory Store for tests.
type mapStore struct {
	data map[string]string
	sets int
	gets int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]string)}
}

func (s *mapStore) Get(key string) (string, error) {
	s.gets++
	v, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *mapStore) Set(key, value string) error {
	s.sets++
	s.data[key] = value
	return nil
}

func TestTracker_AbsentMeansUnread(t *testing.T) {
	tr := NewTracker(newMapStore())

	_, ok, err := tr.LastRead("bob")
	if err != nil {
		t.Fatalf("LastRead failed: %v", err)
	}
	if ok {
		t.Error("expected no read mark for a never-viewed conversation")
	}
}

func TestTracker_MarkReadRoundtrip(t *testing.T) {
	st := newMapStore()
	tr := NewTracker(st)

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := tr.MarkReadAt("bob", at); err != nil {
		t.Fatalf("MarkReadAt failed: %v", err)
	}

	got, ok, err := tr.LastRead("bob")
	if err != nil {
		t.Fatalf("LastRead failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a read mark")
	}
	if !got.Equal(at) {
		t.Errorf("expected %v, got %v", at, got)
	}

	// The mark is keyed per counterpart.
	if _, ok, _ := tr.LastRead("carol"); ok {
		t.Error("read mark leaked to another counterpart")
	}

	if _, exists := st.data["readstate:bob"]; !exists {
		t.Error("mark not persisted under the namespaced key")
	}
}

func TestTracker_CachedReads(t *testing.T) {
	st := newMapStore()
	tr := NewTracker(st)

	if err := tr.MarkRead("bob"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := tr.LastRead("bob"); err != nil {
			t.Fatalf("LastRead failed: %v", err)
		}
	}
	// MarkRead warmed the cache, so repeated reads never hit the store.
	if st.gets != 0 {
		t.Errorf("expected 0 backend reads, got %d", st.gets)
	}
}

func TestTracker_LastWriteWins(t *testing.T) {
	tr := NewTracker(newMapStore())

	early := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	if err := tr.MarkReadAt("bob", early); err != nil {
		t.Fatal(err)
	}
	if err := tr.MarkReadAt("bob", late); err != nil {
		t.Fatal(err)
	}

	got, _, err := tr.LastRead("bob")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(late) {
		t.Errorf("expected %v, got %v", late, got)
	}
}

type failingStore struct{}

func (failingStore) Get(string) (string, error) { return "", errors.New("disk gone") }
func (failingStore) Set(string, string) error   { return errors.New("disk gone") }

func TestTracker_StoreErrors(t *testing.T) {
	tr := NewTracker(failingStore{})

	if _, _, err := tr.LastRead("bob"); err == nil {
		t.Error("expected error from failing store")
	}
	if err := tr.MarkRead("bob"); err == nil {
		t.Error("expected error from failing store")
	}
}

func TestUnreadCount(t *testing.T) {
	at := func(min int) time.Time {
		return time.Date(2024, 1, 1, 10, min, 0, 0, time.UTC)
	}
	messages := []models.Message{
		{ID: "1", SenderID: "A", SentAt: at(0)},
		{ID: "2", SenderID: "B", SentAt: at(1)},            // own message
		{ID: "3", SenderID: "A", SentAt: at(2)},
		{ID: "4", SenderID: "A", SentAt: at(3), Read: true}, // server-flagged
		{ID: "5", SenderID: "A", SentAt: at(4)},
	}

	tests := []struct {
		name     string
		lastRead time.Time
		want     int
	}{
		{"never viewed", time.Time{}, 3},
		{"viewed between", at(2), 1},
		{"viewed after all", at(10), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnreadCount(messages, tt.lastRead, "B"); got != tt.want {
				t.Errorf("UnreadCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnreadCount_Scenario(t *testing.T) {
	// History has one message from A; B opens the conversation with no
	// prior read mark, then the open handler marks it read.
	history := []models.Message{
		{ID: "1", SenderID: "A", Text: "hi", SentAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}

	tr := NewTracker(newMapStore())
	lastRead, _, err := tr.LastRead("A")
	if err != nil {
		t.Fatal(err)
	}
	if got := UnreadCount(history, lastRead, "B"); got != 1 {
		t.Errorf("before open: UnreadCount = %d, want 1", got)
	}

	before := time.Now()
	if err := tr.MarkRead("A"); err != nil {
		t.Fatal(err)
	}

	lastRead, ok, err := tr.LastRead("A")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected persisted mark after open")
	}
	if lastRead.Before(before.Truncate(time.Second)) || lastRead.After(time.Now()) {
		t.Errorf("persisted mark %v not close to now", lastRead)
	}
	if got := UnreadCount(history, lastRead, "B"); got != 0 {
		t.Errorf("after open: UnreadCount = %d, want 0", got)
	}
}
