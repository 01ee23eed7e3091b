// Package live owns the persistent push connection to the messaging service:
// one long-lived subscription per (counterpart, endpoint) pair, reconnecting
// automatically on failure. The channel itself never replays missed events;
// re-fetching history on conversation (re)open is the durability guarantee.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"peertalk/models"
)

type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// TokenFunc produces the access token attached at connect time. It is called
// once per dial, not per message, so a refreshed token is picked up on the
// next reconnect.
type TokenFunc func() (string, error)

type Config struct {
	// URL is the websocket endpoint.
	URL string
	// Event is the single named inbound event this connection subscribes to.
	Event string
	// Token is invoked at every connect.
	Token TokenFunc
	// DialEvery paces connection attempts. Zero means 2 seconds.
	DialEvery time.Duration
	// Dialer overrides the websocket dialer, used in tests.
	Dialer *websocket.Dialer
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("live: endpoint URL is required")
	}
	if c.Event == "" {
		return errors.New("live: event name is required")
	}
	if c.Token == nil {
		return errors.New("live: token func is required")
	}
	if c.DialEvery == 0 {
		c.DialEvery = 2 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	return nil
}

// envelope is the wire frame around a pushed event.
type envelope struct {
	Event string         `json:"event"`
	Data  models.Message `json:"data"`
}

// Channel is a single live push connection. Inbound events for the configured
// event name are fanned out to subscribers in arrival order.
type Channel struct {
	cfg     Config
	limiter *rate.Limiter
	state   atomic.Int32
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	subs    map[int]chan models.Message
	nextSub int
	closed  bool
}

// Open starts the connection loop and returns immediately. The channel keeps
// reconnecting until Close is called or ctx is cancelled.
func Open(ctx context.Context, cfg Config) (*Channel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.DialEvery), 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		subs:    make(map[int]chan models.Message),
	}
	c.state.Store(int32(StateConnecting))

	go c.run(ctx)

	return c, nil
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

// Subscribe registers a consumer of inbound events. The returned cancel func
// detaches the consumer and closes its channel; it is safe to call more than
// once and after Close.
func (c *Channel) Subscribe() (<-chan models.Message, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan models.Message, 64)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close shuts the connection down and closes all subscriber channels.
// Closing an already-closed channel is a no-op.
func (c *Channel) Close() error {
	c.cancel()
	<-c.done
	return nil
}

func (c *Channel) run(ctx context.Context) {
	defer func() {
		c.state.Store(int32(StateClosed))
		c.mu.Lock()
		c.closed = true
		for id, sub := range c.subs {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
		close(c.done)
	}()

	first := true
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		if !first {
			c.state.Store(int32(StateReconnecting))
		}

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("live channel connect failed", "url", c.cfg.URL, "error", err)
			first = false
			continue
		}

		c.state.Store(int32(StateConnected))
		first = false

		err = c.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		slog.Warn("live channel disconnected", "url", c.cfg.URL, "error", err)
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := c.cfg.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	header := http.Header{}
	header.Set("token", token)

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadJSON when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		if env.Event != c.cfg.Event {
			continue
		}
		c.dispatch(env.Data)
	}
}

// dispatch hands one event to every subscriber, preserving per-connection
// arrival order. A subscriber that stopped draining has its event dropped:
// the channel does not guarantee delivery, history re-fetch on reopen does.
func (c *Channel) dispatch(msg models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		select {
		case sub <- msg:
		default:
			slog.Warn("live channel subscriber queue full, dropping event", "event", c.cfg.Event)
		}
	}
}
