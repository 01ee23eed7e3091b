// Package peertalk implements a real-time peer messaging client: one live
// conversation between the current user and a counterpart, merging fetched
// history with pushed live events, tracking durable read state and
// orchestrating attachment uploads before a send.
//
// The package is an embedded component, not a standalone process: the UI
// layer owns rendering and supplies the backend, uploader and session
// capabilities as interfaces.
package peertalk

import (
	"context"
	"errors"
	"time"

	"peertalk/attach"
	"peertalk/models"
	"peertalk/readstate"
)

var (
	// ErrEmptyMessage rejects a send with no text and no attachments.
	ErrEmptyMessage = errors.New("nothing to send")
	// ErrSendInProgress rejects a send while another one is in flight.
	ErrSendInProgress = errors.New("send already in progress")
	// ErrConversationClosed reports an operation on a closed conversation.
	ErrConversationClosed = errors.New("conversation closed")
)

// SendRequest is the body of the authoritative create-message call.
type SendRequest struct {
	Message    string         `json:"message"`
	ReceiverID string         `json:"receiverId"`
	Images     []string       `json:"images"`
	Videos     []models.Video `json:"videos"`
}

// Backend is the REST surface the conversation depends on. The generic REST
// client of the surrounding application satisfies it; httpapi provides a
// default implementation.
type Backend interface {
	// History returns all messages of the conversation with the counterpart.
	History(ctx context.Context, counterpartID string) ([]models.Message, error)
	// Send issues the authoritative create-message call.
	Send(ctx context.Context, req SendRequest) error
}

// Session is the read-only token and user-id source of the surrounding
// application.
type Session interface {
	UserID() string
	Token() (string, error)
}

// SendState is the per-send pipeline state: Idle -> Uploading -> Sending ->
// Idle on success, Uploading -> Idle on upload failure.
type SendState int32

const (
	SendIdle SendState = iota
	SendUploading
	SendSending
)

func (s SendState) String() string {
	switch s {
	case SendIdle:
		return "idle"
	case SendUploading:
		return "uploading"
	case SendSending:
		return "sending"
	}
	return "unknown"
}

type Config struct {
	Backend   Backend
	Uploader  attach.Uploader
	Session   Session
	ReadState *readstate.Tracker

	// ChannelURL is the websocket endpoint of the messaging service.
	ChannelURL string
	// ChannelEvent is the named inbound event carrying pushed messages.
	// Defaults to "message".
	ChannelEvent string
	// DialEvery paces channel reconnect attempts; zero uses the live
	// package default.
	DialEvery time.Duration

	// OnUpdate is invoked after every visible change to the conversation
	// (new message merged, unread count moved). Optional.
	OnUpdate func()
	// OnError is invoked with user-facing upload and send failures.
	// Connection and fetch errors are only logged. Optional.
	OnError func(error)
}

func (c *Config) validate() error {
	if c.Backend == nil {
		return errors.New("peertalk: backend is required")
	}
	if c.Uploader == nil {
		return errors.New("peertalk: uploader is required")
	}
	if c.Session == nil {
		return errors.New("peertalk: session is required")
	}
	if c.ReadState == nil {
		return errors.New("peertalk: read-state tracker is required")
	}
	if c.ChannelURL == "" {
		return errors.New("peertalk: channel URL is required")
	}
	if c.ChannelEvent == "" {
		c.ChannelEvent = "message"
	}
	return nil
}

// Client opens conversations. One conversation is live at a time per
// counterpart; switching conversations closes the previous one.
type Client struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, now: time.Now}, nil
}

func (c *Client) notifyUpdate() {
	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate()
	}
}

func (c *Client) surface(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}
