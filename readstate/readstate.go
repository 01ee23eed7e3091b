package readstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/c-pro/geche"

	"peertalk/models"
)

// ErrNotFound is returned by Store implementations for an absent key. An
// absent read mark means the conversation has never been viewed: everything
// counts as unread.
var ErrNotFound = errors.New("not found")

// Store is the durable key-value capability the tracker persists through.
// Values are RFC 3339 timestamp strings. Implementations must survive
// process restarts; see package storage for the bbolt-backed one.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

const keyPrefix = "readstate:"

// Tracker persists, per counterpart, the last moment the conversation was
// viewed. Writes are last-write-wins set(now) calls, so the conversation-open
// handler and the push handler can both mark independently: "now" only moves
// forward.
type Tracker struct {
	store Store
	cache geche.Geche[string, string]
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		cache: geche.NewMapCache[string, string](),
		now:   time.Now,
	}
}

func key(counterpartID string) string {
	return keyPrefix + counterpartID
}

// LastRead returns the persisted read mark for the counterpart. ok is false
// when no mark exists.
func (t *Tracker) LastRead(counterpartID string) (time.Time, bool, error) {
	k := key(counterpartID)

	raw, err := t.cache.Get(k)
	if err != nil {
		raw, err = t.store.Get(k)
		if errors.Is(err, ErrNotFound) {
			return time.Time{}, false, nil
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("failed to load read mark: %w", err)
		}
		t.cache.Set(k, raw)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt read mark for %s: %w", counterpartID, err)
	}
	return at, true, nil
}

// MarkRead persists "viewed now" for the counterpart.
func (t *Tracker) MarkRead(counterpartID string) error {
	return t.MarkReadAt(counterpartID, t.now())
}

func (t *Tracker) MarkReadAt(counterpartID string, at time.Time) error {
	k := key(counterpartID)
	raw := at.UTC().Format(time.RFC3339Nano)

	if err := t.store.Set(k, raw); err != nil {
		return fmt.Errorf("failed to persist read mark: %w", err)
	}
	t.cache.Set(k, raw)
	return nil
}

// UnreadCount is a pure function over the message list, the read mark and the
// current user id: no side effects, safe to call on every render. It counts
// messages from the other participant, newer than the mark, and not already
// flagged read by the server. A zero lastRead means everything is unread.
func UnreadCount(messages []models.Message, lastRead time.Time, currentUserID string) int {
	count := 0
	for _, m := range messages {
		if m.SenderID == currentUserID || m.Read {
			continue
		}
		if m.SentAt.After(lastRead) {
			count++
		}
	}
	return count
}
