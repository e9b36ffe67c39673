package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket connection to Kalshi.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Subscribe sends a subscribe command for the given channels and
	// returns the command id.
	Subscribe(channels ...string) (int64, error)

	// Messages returns a channel of ALL raw messages (data + command responses).
	// Each message includes a local timestamp for when it was received.
	Messages() <-chan TimestampedMessage

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan TimestampedMessage
	errors   chan error
	done     chan struct{}

	writeMu sync.Mutex
	cmdID   atomic.Int64

	mu        sync.RWMutex
	connected bool
	closed    bool
	lastSeen  time.Time // last inbound frame of any kind
}

// NewClient creates a new WebSocket client. Zero-valued config fields take
// their defaults.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultClientConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}

	return &client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrAlreadyClosed
	}

	header, err := c.handshakeHeader()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", c.cfg.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastSeen = time.Now()
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.keepalive(conn)

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

func (c *client) handshakeHeader() (http.Header, error) {
	header := http.Header{}
	if c.cfg.Header != nil {
		h, err := c.cfg.Header()
		if err != nil {
			return nil, fmt.Errorf("build handshake headers: %w", err)
		}
		header = h.Clone()
	}
	header.Set("Accept", "application/json")
	return header, nil
}

// Close sends a normal closure frame and closes the connection. Calling it
// more than once is a no-op.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn == nil {
		return nil
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
	return conn.Close()
}

func (c *client) Send(data []byte) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) Subscribe(channels ...string) (int64, error) {
	id := c.cmdID.Add(1)
	data, err := json.Marshal(Command{
		ID:     id,
		Cmd:    "subscribe",
		Params: SubscribeParams{Channels: channels},
	})
	if err != nil {
		return 0, fmt.Errorf("encode subscribe: %w", err)
	}
	if err := c.Send(data); err != nil {
		return 0, fmt.Errorf("send subscribe: %w", err)
	}
	c.logger.Debug("subscribe sent", "id", id, "channels", channels)
	return id, nil
}

func (c *client) Messages() <-chan TimestampedMessage { return c.messages }

func (c *client) Errors() <-chan error { return c.errors }

func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *client) idleFor() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastSeen)
}

func (c *client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// fail reports err unless the client is closing or an error is already
// pending.
func (c *client) fail(err error) {
	if c.isDone() {
		return
	}
	select {
	case c.errors <- err:
	default:
	}
}

func (c *client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for !c.isDone() {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			c.fail(err)
			return
		}
		c.touch()

		select {
		case c.messages <- TimestampedMessage{Data: data, ReceivedAt: receivedAt}:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// keepalive pings the server every PingInterval and reports
// ErrStaleConnection once nothing has arrived for PingTimeout.
func (c *client) keepalive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		deadline := time.Now().Add(time.Second)
		if c.cfg.WriteTimeout > 0 {
			deadline = time.Now().Add(c.cfg.WriteTimeout)
		}
		if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
			c.logger.Debug("failed to send ping", "error", err)
		}

		if idle := c.idleFor(); idle > c.cfg.PingTimeout {
			c.logger.Warn("connection stale", "idle", idle, "timeout", c.cfg.PingTimeout)
			c.fail(ErrStaleConnection)
			return
		}
	}
}
