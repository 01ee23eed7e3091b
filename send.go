package peertalk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"peertalk/attach"
	"peertalk/content"
	"peertalk/models"
)

// SendState returns the current state of the send pipeline.
func (conv *Conversation) SendState() SendState {
	return SendState(conv.sendState.Load())
}

// Send runs the send pipeline over the current composer state:
//
//	Idle -> Uploading -> Sending -> Idle
//
// All pending attachments are uploaded concurrently and the pipeline only
// proceeds once the whole batch has settled. On any upload failure the send
// is aborted before a message exists and the composer (text and files) is
// left intact for retry. On success an optimistic message is merged into the
// store and the composer is cleared immediately, before the authoritative
// call resolves. A failed authoritative call is surfaced but the optimistic
// message stays in place.
func (conv *Conversation) Send(ctx context.Context) error {
	if conv.closed.Load() {
		return ErrConversationClosed
	}

	text := content.Sanitize(strings.TrimSpace(conv.Text()))
	pending := conv.batch.Pending()
	if text == "" && len(pending) == 0 {
		return ErrEmptyMessage
	}

	if !conv.sendState.CompareAndSwap(int32(SendIdle), int32(SendUploading)) {
		return ErrSendInProgress
	}

	resolved, err := attach.Upload(ctx, conv.client.cfg.Uploader, pending)
	if err != nil {
		conv.sendState.Store(int32(SendIdle))
		err = fmt.Errorf("attachment upload failed: %w", err)
		conv.client.surface(err)
		return err
	}
	if conv.closed.Load() {
		// Conversation switched away while uploads were in flight, the
		// results are ignored.
		conv.sendState.Store(int32(SendIdle))
		return ErrConversationClosed
	}

	optimistic := models.Message{
		ID:         models.NewLocalID(),
		SenderID:   conv.client.cfg.Session.UserID(),
		ReceiverID: conv.counterpartID,
		Text:       text,
		Images:     resolved.Images,
		Videos:     resolved.Videos,
		SentAt:     conv.client.now(),
		Optimistic: true,
	}
	conv.store.Merge(optimistic)

	conv.SetText("")
	conv.batch.Clear()
	conv.client.notifyUpdate()

	conv.sendState.Store(int32(SendSending))
	err = conv.client.cfg.Backend.Send(ctx, SendRequest{
		Message:    text,
		ReceiverID: conv.counterpartID,
		Images:     resolved.Images,
		Videos:     resolved.Videos,
	})
	conv.sendState.Store(int32(SendIdle))
	if err != nil {
		// The optimistic message is left in place, there is no rollback
		// path for a failed authoritative send.
		err = fmt.Errorf("send failed: %w", err)
		slog.Error("authoritative send failed", "counterpart", conv.counterpartID, "error", err)
		if !conv.closed.Load() {
			conv.client.surface(err)
		}
		return err
	}

	return nil
}
