package router

import "time"

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	TickerBufferSize int // initial capacity, grows on demand
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		TickerBufferSize: 1000,
	}
}

// TickerMsg is a parsed ticker update. Prices are yes probabilities in
// 0..1; fields the update did not carry are nil.
type TickerMsg struct {
	Channel string `json:"channel"`
	Ticker  string `json:"market_ticker"`
	SID     int64  `json:"sid"`
	Seq     int64  `json:"seq,omitempty"`

	Price  *float64 `json:"price,omitempty"`
	YesBid *float64 `json:"yes_bid,omitempty"`
	YesAsk *float64 `json:"yes_ask,omitempty"`

	// ticker carries totals, ticker_v2 carries deltas.
	Volume            *int64 `json:"volume,omitempty"`
	OpenInterest      *int64 `json:"open_interest,omitempty"`
	DollarVolume      *int64 `json:"dollar_volume,omitempty"`
	VolumeDelta       *int64 `json:"volume_delta,omitempty"`
	OpenInterestDelta *int64 `json:"open_interest_delta,omitempty"`
	DollarVolumeDelta *int64 `json:"dollar_volume_delta,omitempty"`

	ExchangeTime time.Time `json:"exchange_time"`
	ReceivedAt   time.Time `json:"received_at"`
}

// tickerWire is the wire format shared by ticker and ticker_v2 messages.
type tickerWire struct {
	Type string `json:"type"`
	SID  int64  `json:"sid"`
	Seq  int64  `json:"seq"`
	Msg  struct {
		MarketTicker      string `json:"market_ticker"`
		Price             *int64 `json:"price"` // cents
		YesBid            *int64 `json:"yes_bid"`
		YesAsk            *int64 `json:"yes_ask"`
		PriceDollars      string `json:"price_dollars"`
		YesBidDollars     string `json:"yes_bid_dollars"`
		YesAskDollars     string `json:"yes_ask_dollars"`
		Volume            *int64 `json:"volume"`
		OpenInterest      *int64 `json:"open_interest"`
		DollarVolume      *int64 `json:"dollar_volume"`
		VolumeDelta       *int64 `json:"volume_delta"`
		OpenInterestDelta *int64 `json:"open_interest_delta"`
		DollarVolumeDelta *int64 `json:"dollar_volume_delta"`
		Ts                int64  `json:"ts"` // seconds
	} `json:"msg"`
}

// messageEnvelope is used for fast type extraction.
type messageEnvelope struct {
	Type string `json:"type"`
}
