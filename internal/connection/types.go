package connection

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Channel names.
const (
	ChannelTicker   = "ticker"
	ChannelTickerV2 = "ticker_v2"
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a data message forwarded by a Stream.
type RawMessage struct {
	Data       []byte
	ReceivedAt time.Time
	Attempt    int // connection attempt that produced it, starting at 1
}

// Command is a WebSocket command to send to the server.
type Command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params"`
}

// SubscribeParams are parameters for a subscribe command.
type SubscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers,omitempty"`
}

// Response is a command response from the server.
type Response struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"` // "subscribed", "unsubscribed", "error", "ok"
	Msg  json.RawMessage `json:"msg"`
}

// SubscribedMsg is the message content for a "subscribed" response.
type SubscribedMsg struct {
	SID     int64  `json:"sid"`
	Channel string `json:"channel"`
}

// ErrorMsg is the message content for an "error" response.
type ErrorMsg struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// HeaderFunc produces the handshake headers for a connection attempt.
// Signed headers carry a timestamp, so it runs on every dial.
type HeaderFunc func() (http.Header, error)

// BearerHeader authenticates with a static API key.
func BearerHeader(apiKey string) HeaderFunc {
	return func() (http.Header, error) {
		h := http.Header{}
		if apiKey != "" {
			h.Set("Authorization", "Bearer "+apiKey)
		}
		return h, nil
	}
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://api.elections.kalshi.com/trade-api/ws/v2)
	Header           HeaderFunc    // nil = unauthenticated
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // how often we ping the server
	PingTimeout      time.Duration // Max time without ping before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     10 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// StreamConfig configures a Stream.
type StreamConfig struct {
	Client            ClientConfig
	Channels          []string
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
	MessageBufferSize int
}

// DefaultStreamConfig subscribes to ticker_v2.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Client:            DefaultClientConfig(),
		Channels:          []string{ChannelTickerV2},
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  60 * time.Second,
		MessageBufferSize: 10000,
	}
}
