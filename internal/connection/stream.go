package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Stream keeps one subscribed connection alive and forwards its data
// messages. Command responses are logged, not forwarded.
type Stream struct {
	cfg       StreamConfig
	newClient func(ClientConfig, *slog.Logger) Client
	logger    *slog.Logger

	out chan RawMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	client     Client
	attempts   int
	reconnects int
}

// StreamStats reports connection attempts.
type StreamStats struct {
	Attempts   int
	Reconnects int
	Connected  bool
}

// NewStream creates a Stream.
func NewStream(cfg StreamConfig, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{ChannelTickerV2}
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = time.Second
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = DefaultStreamConfig().MessageBufferSize
	}
	return &Stream{
		cfg:       cfg,
		newClient: NewClient,
		logger:    logger,
		out:       make(chan RawMessage, cfg.MessageBufferSize),
	}
}

// Messages returns the data message channel. It is closed after Stop.
func (s *Stream) Messages() <-chan RawMessage {
	return s.out
}

// Start connects and subscribes. The first connection must succeed; later
// drops are retried in the background until Stop.
func (s *Stream) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	c, err := s.connect()
	if err != nil {
		s.cancel()
		return err
	}

	s.wg.Add(1)
	go s.run(c)
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (s *Stream) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	c := s.client
	s.mu.Unlock()
	if c != nil {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(s.out)
		s.logger.Info("stream stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("stream stop timed out")
		return ctx.Err()
	}
}

// Stats returns connection counters.
func (s *Stream) Stats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamStats{
		Attempts:   s.attempts,
		Reconnects: s.reconnects,
		Connected:  s.client != nil && s.client.IsConnected(),
	}
}

func (s *Stream) connect() (Client, error) {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	c := s.newClient(s.cfg.Client, s.logger.With("attempt", attempt))
	if err := c.Connect(s.ctx); err != nil {
		return nil, err
	}
	if _, err := c.Subscribe(s.cfg.Channels...); err != nil {
		c.Close()
		return nil, err
	}

	s.mu.Lock()
	s.client = c
	s.mu.Unlock()

	s.logger.Info("stream connected", "url", s.cfg.Client.URL, "channels", s.cfg.Channels, "attempt", attempt)
	return c, nil
}

func (s *Stream) run(c Client) {
	defer s.wg.Done()

	for {
		err := s.readLoop(c)
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("connection lost", "error", err)
		c.Close()

		next, ok := s.reconnect()
		if !ok {
			return
		}
		c = next
	}
}

// readLoop forwards data messages until the client reports an error.
func (s *Stream) readLoop(c Client) error {
	s.mu.Lock()
	attempt := s.attempts
	s.mu.Unlock()

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()

		case err := <-c.Errors():
			return err

		case msg, ok := <-c.Messages():
			if !ok {
				return ErrNotConnected
			}

			if resp, ok := parseResponse(msg.Data); ok {
				s.logResponse(resp)
				continue
			}

			raw := RawMessage{
				Data:       msg.Data,
				ReceivedAt: msg.ReceivedAt,
				Attempt:    attempt,
			}

			select {
			case s.out <- raw:
			case <-s.ctx.Done():
				return s.ctx.Err()
			default:
				s.logger.Warn("message buffer full, dropping")
			}
		}
	}
}

// reconnect retries with exponential backoff until a connection succeeds
// or the stream is stopped.
func (s *Stream) reconnect() (Client, bool) {
	wait := s.cfg.ReconnectBaseWait

	for {
		select {
		case <-s.ctx.Done():
			return nil, false
		case <-time.After(wait):
		}

		s.logger.Info("attempting reconnection", "wait", wait)

		c, err := s.connect()
		if err != nil {
			s.logger.Warn("reconnection failed", "error", err)
			wait *= 2
			if wait > s.cfg.ReconnectMaxWait {
				wait = s.cfg.ReconnectMaxWait
			}
			continue
		}

		s.mu.Lock()
		s.reconnects++
		s.mu.Unlock()
		return c, true
	}
}

func (s *Stream) logResponse(resp Response) {
	switch resp.Type {
	case "subscribed":
		var sub SubscribedMsg
		if err := json.Unmarshal(resp.Msg, &sub); err == nil {
			s.logger.Info("subscribed", "id", resp.ID, "sid", sub.SID, "channel", sub.Channel)
			return
		}
	case "error":
		var e ErrorMsg
		if err := json.Unmarshal(resp.Msg, &e); err == nil {
			s.logger.Error("command failed", "id", resp.ID, "code", e.Code, "message", e.Message)
			return
		}
	}
	s.logger.Debug("command response", "id", resp.ID, "type", resp.Type)
}

// parseResponse attempts to parse a message as a command response.
func parseResponse(data []byte) (Response, bool) {
	if !bytes.Contains(data, []byte(`"id"`)) {
		return Response{}, false
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, false
	}

	switch resp.Type {
	case "subscribed", "unsubscribed", "error", "ok":
		return resp, true
	}
	return Response{}, false
}
