package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/prediction-pulse/internal/connection"
)

// Router parses raw WebSocket messages into ticker updates.
type Router interface {
	// Start begins routing messages from the input channel.
	Start(ctx context.Context) error

	// Stop shuts down the router and closes the output buffer.
	Stop(ctx context.Context) error

	// Tickers returns the output buffer.
	Tickers() *GrowableBuffer[TickerMsg]

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	Skipped          int64
	TickerBuffer     BufferStats
}

var errNoTicker = errors.New("ticker message without market_ticker")

type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	input <-chan connection.RawMessage

	tickerBuf *GrowableBuffer[TickerMsg]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	received    int64
	routed      int64
	parseErrors int64
	skipped     int64
}

// NewRouter creates a new Message Router.
func NewRouter(cfg RouterConfig, input <-chan connection.RawMessage, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:       cfg,
		logger:    logger,
		input:     input,
		tickerBuf: NewGrowableBuffer[TickerMsg](cfg.TickerBufferSize),
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started", "ticker_buffer", r.cfg.TickerBufferSize)
	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.tickerBuf.Close()
	return nil
}

// Tickers returns the ticker buffer.
func (r *router) Tickers() *GrowableBuffer[TickerMsg] {
	return r.tickerBuf
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		Skipped:          r.skipped,
		TickerBuffer:     r.tickerBuf.Stats(),
	}
}

func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				r.tickerBuf.Close()
				return
			}
			r.route(raw)
		}
	}
}

// route parses and routes a single message.
func (r *router) route(raw connection.RawMessage) {
	r.count(&r.received)

	var envelope messageEnvelope
	if err := json.Unmarshal(raw.Data, &envelope); err != nil {
		r.logger.Warn("failed to extract message type", "error", err)
		r.count(&r.parseErrors)
		return
	}

	switch envelope.Type {
	case connection.ChannelTicker, connection.ChannelTickerV2:
		msg, err := ParseTicker(raw.Data, raw.ReceivedAt)
		if err != nil {
			r.logger.Warn("failed to parse ticker", "type", envelope.Type, "error", err)
			r.count(&r.parseErrors)
			return
		}
		if r.tickerBuf.Send(msg) {
			r.count(&r.routed)
		}
	default:
		r.logger.Debug("skipping message type", "type", envelope.Type)
		r.count(&r.skipped)
	}
}

func (r *router) count(n *int64) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}

// ParseTicker decodes a ticker or ticker_v2 message.
func ParseTicker(data []byte, receivedAt time.Time) (TickerMsg, error) {
	var wire tickerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return TickerMsg{}, err
	}
	if wire.Msg.MarketTicker == "" {
		return TickerMsg{}, errNoTicker
	}

	m := wire.Msg
	msg := TickerMsg{
		Channel:           wire.Type,
		Ticker:            m.MarketTicker,
		SID:               wire.SID,
		Seq:               wire.Seq,
		Price:             price(m.PriceDollars, m.Price),
		YesBid:            price(m.YesBidDollars, m.YesBid),
		YesAsk:            price(m.YesAskDollars, m.YesAsk),
		Volume:            m.Volume,
		OpenInterest:      m.OpenInterest,
		DollarVolume:      m.DollarVolume,
		VolumeDelta:       m.VolumeDelta,
		OpenInterestDelta: m.OpenInterestDelta,
		DollarVolumeDelta: m.DollarVolumeDelta,
		ReceivedAt:        receivedAt,
	}
	if m.Ts > 0 {
		msg.ExchangeTime = time.Unix(m.Ts, 0).UTC()
	}
	return msg, nil
}

var hundred = decimal.NewFromInt(100)

// price prefers the dollar string and falls back to cents.
func price(dollars string, cents *int64) *float64 {
	if dollars != "" {
		if d, err := decimal.NewFromString(dollars); err == nil {
			f := d.Round(4).InexactFloat64()
			return &f
		}
	}
	if cents != nil {
		f := decimal.NewFromInt(*cents).Div(hundred).Round(4).InexactFloat64()
		return &f
	}
	return nil
}
