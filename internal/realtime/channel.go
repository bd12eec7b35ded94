// Package realtime maintains a persistent bidirectional channel to the
// pipeline backend (client events, chat) over a websocket.
//
// The channel is an explicit state machine: CLOSED → CONNECTING → OPEN →
// RECONNECT_WAIT → CONNECTING → … . An abnormal close schedules exactly one
// reconnect after a fixed delay, up to a bounded number of attempts; the
// attempt counter resets only when a connection opens successfully. An
// explicit Close never reconnects and cancels any scheduled retry, so no
// orphaned timer can revive a channel nobody listens to.
//
// Inbound messages are delivered to the subscriber in receipt order. The
// channel performs no de-duplication: if the backend redelivers across a
// reconnect, dedup is the subscriber's concern.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrChannelNotReady is returned by Send when the channel is not OPEN.
// Sends are never queued; the caller checks state and retries after the
// channel reopens.
var ErrChannelNotReady = errors.New("realtime: channel not open")

// ErrReconnectExhausted is the terminal error after the reconnect budget is
// spent. Recovering requires a new channel (an explicit, manual reconnect).
var ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")

// ErrAlreadyOpen is returned by Open on a channel that is already running.
var ErrAlreadyOpen = errors.New("realtime: channel already open")

// errNormalClosure classifies a read error as an intentional close.
// Transport adapters wrap their normal-closure errors with it.
var errNormalClosure = errors.New("realtime: normal closure")

// NormalClosure wraps err so the channel treats it as an intentional close
// (no reconnect). Transport adapters call this for close frames carrying
// the normal-closure code.
func NormalClosure(err error) error {
	if err == nil {
		return errNormalClosure
	}
	return fmt.Errorf("%w: %w", errNormalClosure, err)
}

// State is the channel's connection state.
type State string

const (
	StateClosed        State = "closed"
	StateConnecting    State = "connecting"
	StateOpen          State = "open"
	StateReconnectWait State = "reconnect_wait"
)

// Conn is one established transport connection.
type Conn interface {
	// ReadMessage blocks for the next inbound payload. A normal-closure
	// error (wrapped via NormalClosure) ends the session without reconnect;
	// any other error counts as an abnormal close.
	ReadMessage() ([]byte, error)
	// WriteMessage sends one payload.
	WriteMessage(data []byte) error
	// Close tears the connection down.
	Close() error
}

// Dialer establishes transport connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Defaults observed in production: five retries, five seconds apart.
const (
	DefaultMaxAttempts    = 5
	DefaultReconnectDelay = 5 * time.Second
)

// Config configures a Channel.
type Config struct {
	// URL is the endpoint to dial. The channel appends its session id as
	// the "session" query parameter.
	URL string

	// Dialer establishes connections. Required.
	Dialer Dialer

	// MaxAttempts bounds consecutive reconnects (default 5).
	MaxAttempts int

	// ReconnectDelay is the fixed wait between attempts (default 5s).
	ReconnectDelay time.Duration

	// OnMessage receives each inbound payload, in receipt order, on the
	// channel's read goroutine.
	OnMessage func([]byte)

	// OnStateChange, when set, observes every state transition.
	OnStateChange func(State)

	Logger *slog.Logger
}

// Channel is a reconnecting realtime connection. A channel is single-use:
// once it reaches terminal CLOSED (explicit close or exhausted retries), a
// fresh channel must be created to reconnect.
type Channel struct {
	cfg       Config
	sessionID string

	mu      sync.Mutex
	state   State
	attempt int
	conn    Conn
	timer   *time.Timer
	opened  bool

	writeMu sync.Mutex

	closed    chan struct{} // closed by Close()
	closeOnce sync.Once
	done      chan struct{} // closed when the run loop exits
	err       error         // terminal error, set before done closes
}

// New creates a channel in the CLOSED state. sessionID identifies this
// client session to the backend and is carried in the dial URL.
func New(cfg Config, sessionID string) *Channel {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Channel{
		cfg:       cfg,
		sessionID: sessionID,
		state:     StateClosed,
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SessionID returns the per-session client identifier.
func (c *Channel) SessionID() string { return c.sessionID }

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt returns the current reconnect attempt counter.
func (c *Channel) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Done is closed when the channel reaches terminal CLOSED.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err returns the terminal error: nil after an explicit close,
// ErrReconnectExhausted after the retry budget is spent. Only valid once
// Done is closed.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Open starts connecting. It returns immediately; connection progress is
// observable through OnStateChange, Send errors, and Done.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.opened = true
	c.mu.Unlock()

	c.setState(StateConnecting)
	go c.run(ctx)
	return nil
}

// Send transmits one payload. Valid only while OPEN; any other state fails
// with ErrChannelNotReady and nothing is queued.
func (c *Channel) Send(data []byte) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return ErrChannelNotReady
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("realtime: send: %w", err)
	}
	return nil
}

// Close ends the session intentionally. Any scheduled reconnect timer is
// cancelled and no new attempt is made. Safe to call from any state and
// more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		conn := c.conn
		started := c.opened
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		if !started {
			// Run loop never existed; finish the terminal transition here.
			c.terminate(nil)
		}
	})
	return nil
}

// run drives the connect / read / reconnect-wait cycle until the channel
// closes or the retry budget is exhausted.
func (c *Channel) run(ctx context.Context) {
	for {
		conn, err := c.cfg.Dialer.Dial(ctx, c.dialURL())
		if c.isClosing() || ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			c.terminate(nil)
			return
		}
		if err != nil {
			c.cfg.Logger.Warn("realtime: dial failed", "session", c.sessionID, "err", err)
			if !c.awaitRetry(ctx) {
				return
			}
			continue
		}

		c.setOpen(conn)
		c.cfg.Logger.Info("realtime: connected", "session", c.sessionID)

		normal := c.readLoop(conn)
		_ = conn.Close()
		c.detach(conn)

		if normal || c.isClosing() || ctx.Err() != nil {
			c.terminate(nil)
			return
		}
		c.cfg.Logger.Warn("realtime: connection lost", "session", c.sessionID)
		if !c.awaitRetry(ctx) {
			return
		}
	}
}

// readLoop delivers inbound messages in receipt order until the connection
// errors. It reports whether the closure was intentional.
func (c *Channel) readLoop(conn Conn) bool {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return errors.Is(err, errNormalClosure)
		}
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(data)
		}
	}
}

// awaitRetry consumes one reconnect attempt and waits out the fixed delay.
// It reports false when the channel is done (budget exhausted, closed, or
// context cancelled), having already completed the terminal transition.
func (c *Channel) awaitRetry(ctx context.Context) bool {
	c.mu.Lock()
	if c.attempt >= c.cfg.MaxAttempts {
		c.mu.Unlock()
		c.cfg.Logger.Error("realtime: giving up",
			"session", c.sessionID, "attempts", c.cfg.MaxAttempts)
		c.terminate(ErrReconnectExhausted)
		return false
	}
	c.attempt++
	attempt := c.attempt
	timer := time.NewTimer(c.cfg.ReconnectDelay)
	c.timer = timer
	c.mu.Unlock()

	c.setState(StateReconnectWait)
	c.cfg.Logger.Info("realtime: reconnecting",
		"session", c.sessionID, "attempt", attempt, "delay", c.cfg.ReconnectDelay)

	select {
	case <-timer.C:
		c.setState(StateConnecting)
		return true
	case <-c.closed:
		timer.Stop()
		c.terminate(nil)
		return false
	case <-ctx.Done():
		timer.Stop()
		c.terminate(nil)
		return false
	}
}

// setOpen installs the live connection and resets the attempt counter —
// the only place it resets.
func (c *Channel) setOpen(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.attempt = 0
	c.mu.Unlock()
	c.setState(StateOpen)
}

// detach clears the connection reference if it is still the current one.
func (c *Channel) detach(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// terminate performs the terminal transition to CLOSED. Idempotent via the
// done channel.
func (c *Channel) terminate(err error) {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
	}
	c.err = err
	c.conn = nil
	c.mu.Unlock()
	c.setState(StateClosed)
	close(c.done)
}

func (c *Channel) isClosing() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	cb := c.cfg.OnStateChange
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (c *Channel) dialURL() string {
	sep := "?"
	for _, r := range c.cfg.URL {
		if r == '?' {
			sep = "&"
			break
		}
	}
	return c.cfg.URL + sep + "session=" + c.sessionID
}
