package peertalk

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"peertalk/attach"
	"peertalk/live"
	"peertalk/models"
	"peertalk/readstate"
	"peertalk/store"
)

// Conversation is one open conversation with a counterpart. It owns the
// message store, the composer state (text and pending attachments) and the
// live channel subscription. All methods are safe for concurrent use.
type Conversation struct {
	client        *Client
	counterpartID string

	store   *store.Store
	batch   *attach.Batch
	channel *live.Channel
	cancel  func()

	sendState atomic.Int32
	visible   atomic.Bool
	closed    atomic.Bool
	wg        sync.WaitGroup

	composerMu   sync.Mutex
	composerText string
}

// Open starts a conversation with the counterpart: it fetches history, marks
// the conversation read, and opens the live channel. A failed history fetch
// is logged and yields an empty conversation rather than an error; the
// channel keeps reconnecting on its own. ctx bounds the conversation
// lifetime.
func (c *Client) Open(ctx context.Context, counterpartID string) (*Conversation, error) {
	conv := &Conversation{
		client:        c,
		counterpartID: counterpartID,
		store:         store.New(),
		batch:         attach.NewBatch(),
	}
	conv.visible.Store(true)

	history, err := c.cfg.Backend.History(ctx, counterpartID)
	switch {
	case err != nil:
		slog.Error("history fetch failed", "counterpart", counterpartID, "error", err)
	case conv.closed.Load():
		// Closed while the fetch was in flight, drop the result.
	default:
		conv.store.LoadHistory(history)
		if err := c.cfg.ReadState.MarkRead(counterpartID); err != nil {
			slog.Error("failed to persist read mark", "counterpart", counterpartID, "error", err)
		}
	}

	channel, err := live.Open(ctx, live.Config{
		URL:       c.cfg.ChannelURL,
		Event:     c.cfg.ChannelEvent,
		Token:     c.cfg.Session.Token,
		DialEvery: c.cfg.DialEvery,
	})
	if err != nil {
		return nil, err
	}
	conv.channel = channel

	events, cancel := channel.Subscribe()
	conv.cancel = cancel

	conv.wg.Add(1)
	go conv.consume(events)

	c.notifyUpdate()
	return conv, nil
}

// consume routes pushed events into the store. Events not concerning this
// conversation are ignored. While the conversation panel is visible, an
// inbound message immediately moves the read mark.
func (conv *Conversation) consume(events <-chan models.Message) {
	defer conv.wg.Done()

	for msg := range events {
		if conv.closed.Load() {
			continue
		}
		if msg.SenderID != conv.counterpartID && msg.ReceiverID != conv.counterpartID {
			continue
		}
		if !conv.store.Merge(msg) {
			continue
		}
		if conv.visible.Load() {
			if err := conv.client.cfg.ReadState.MarkRead(conv.counterpartID); err != nil {
				slog.Error("failed to persist read mark", "counterpart", conv.counterpartID, "error", err)
			}
		}
		conv.client.notifyUpdate()
	}
}

// Close ends the conversation: the event subscription is cancelled first,
// then the channel is closed (closing an already-closed channel is silent).
// Pending attachment previews are revoked. Results of in-flight work resolve
// into the void afterwards.
func (conv *Conversation) Close() {
	if !conv.closed.CompareAndSwap(false, true) {
		return
	}
	conv.cancel()
	_ = conv.channel.Close()
	conv.wg.Wait()
	conv.batch.Clear()
}

// CounterpartID returns the other participant's id.
func (conv *Conversation) CounterpartID() string {
	return conv.counterpartID
}

// Timeline returns the ordered messages interleaved with day markers.
func (conv *Conversation) Timeline() []store.Entry {
	return conv.store.Timeline()
}

// Messages returns the ordered message list.
func (conv *Conversation) Messages() []models.Message {
	return conv.store.Messages()
}

// Unread recomputes the unread count from the store, the persisted read mark
// and the current user id. Safe to call on every render.
func (conv *Conversation) Unread() int {
	lastRead, _, err := conv.client.cfg.ReadState.LastRead(conv.counterpartID)
	if err != nil {
		slog.Error("failed to load read mark", "counterpart", conv.counterpartID, "error", err)
	}
	return readstate.UnreadCount(conv.store.Messages(), lastRead, conv.client.cfg.Session.UserID())
}

// SetVisible tells the conversation whether its panel is currently shown.
// While hidden, inbound messages accumulate as unread.
func (conv *Conversation) SetVisible(visible bool) {
	conv.visible.Store(visible)
	if visible && !conv.closed.Load() {
		if err := conv.client.cfg.ReadState.MarkRead(conv.counterpartID); err != nil {
			slog.Error("failed to persist read mark", "counterpart", conv.counterpartID, "error", err)
		}
		conv.client.notifyUpdate()
	}
}

// ChannelState exposes the live channel connection state.
func (conv *Conversation) ChannelState() live.State {
	return conv.channel.State()
}

// SetText replaces the composer text.
func (conv *Conversation) SetText(text string) {
	conv.composerMu.Lock()
	defer conv.composerMu.Unlock()
	conv.composerText = text
}

// Text returns the current composer text.
func (conv *Conversation) Text() string {
	conv.composerMu.Lock()
	defer conv.composerMu.Unlock()
	return conv.composerText
}

// Attach adds selected files to the pending batch, up to the attachment cap.
func (conv *Conversation) Attach(files ...attach.File) (int, error) {
	return conv.batch.Add(files...)
}

// RemoveAttachment drops one pending attachment and revokes its preview.
func (conv *Conversation) RemoveAttachment(i int) {
	conv.batch.Remove(i)
}

// Attachments returns the pending attachments.
func (conv *Conversation) Attachments() []attach.Pending {
	return conv.batch.Pending()
}
