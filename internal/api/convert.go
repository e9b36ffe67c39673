package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// Market statuses written to the markets table.
const (
	MarketTrading  = "TRADING"
	MarketClosed   = "CLOSED"
	MarketResolved = "RESOLVED"
)

var hundred = decimal.NewFromInt(100)

// ParseDollars parses a sub-penny dollar string such as "0.5250".
// Returns false for empty or invalid input.
func ParseDollars(dollars string) (decimal.Decimal, bool) {
	dollars = strings.TrimSpace(dollars)
	if dollars == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(dollars)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// quote prefers the dollar string and falls back to whole cents.
func quote(dollars string, cents int) (decimal.Decimal, bool) {
	if d, ok := ParseDollars(dollars); ok {
		return d, true
	}
	if cents > 0 {
		return decimal.NewFromInt(int64(cents)).Div(hundred), true
	}
	return decimal.Zero, false
}

// Price returns the yes probability: the bid/ask midpoint when both sides
// are quoted, else the last trade, rounded to 4 places.
func (m *APIMarket) Price() (decimal.Decimal, bool) {
	bid, okBid := quote(m.YesBidDollars, m.YesBid)
	ask, okAsk := quote(m.YesAskDollars, m.YesAsk)
	if okBid && okAsk {
		return bid.Add(ask).Div(decimal.NewFromInt(2)).Round(4), true
	}
	if last, ok := quote(m.LastPriceDollars, m.LastPrice); ok {
		return last.Round(4), true
	}
	return decimal.Zero, false
}

// CandidateName is the last dash-separated segment of a ticker.
func CandidateName(ticker string) string {
	if i := strings.LastIndex(ticker, "-"); i >= 0 {
		return ticker[i+1:]
	}
	return ticker
}

// ParseTimestamp parses an ISO 8601 timestamp. Returns nil for empty or
// invalid input.
func ParseTimestamp(iso string) *model.Time {
	if iso == "" {
		return nil
	}
	t, err := model.ParseTime(iso)
	if err != nil {
		return nil
	}
	return &t
}

// MarketStatus maps an API status onto the markets table vocabulary.
func MarketStatus(status string) string {
	switch strings.ToLower(status) {
	case "", "open", "active", "initialized":
		return MarketTrading
	case "closed":
		return MarketClosed
	case "settled", "finalized", "determined":
		return MarketResolved
	default:
		return strings.ToUpper(status)
	}
}

// ToEvent converts an APIEvent to an events row.
func (e *APIEvent) ToEvent() model.Event {
	return model.Event{
		EventID: e.EventTicker,
		Title:   e.title(),
		Source:  model.SourceKalshi,
	}
}

func (e *APIEvent) title() string {
	if e == nil {
		return ""
	}
	if e.Title != "" {
		return e.Title
	}
	return e.EventTicker
}

// ToMarket converts an APIMarket to a markets row. ev may be nil when the
// parent event is unknown.
func (m *APIMarket) ToMarket(ev *APIEvent) model.Market {
	title := ev.title()
	if title == "" {
		title = m.Title
	}
	return model.Market{
		MarketID:          m.Ticker,
		MarketName:        CandidateName(m.Ticker),
		MarketDescription: title,
		EventName:         title,
		EventTicker:       m.EventTicker,
		Expiration:        ParseTimestamp(m.CloseTime),
		Tags:              []string{model.SourceKalshi},
		Source:            model.SourceKalshi,
		Status:            MarketStatus(m.Status),
	}
}

// ToSnapshot converts an APIMarket to a market_snapshots row taken at ts.
func (m *APIMarket) ToSnapshot(ts time.Time) model.SnapshotRecord {
	rec := model.SnapshotRecord{
		MarketID:   m.Ticker,
		Volume:     model.Float(float64(m.Volume)),
		Liquidity:  model.Float(float64(m.OpenInterest)),
		Expiration: ParseTimestamp(m.CloseTime),
		Timestamp:  model.NewTime(ts),
		Source:     model.SourceKalshi,
	}
	if bid, ok := quote(m.YesBidDollars, m.YesBid); ok {
		rec.YesBid = model.Float(bid.InexactFloat64())
	}
	if bid, ok := quote(m.NoBidDollars, m.NoBid); ok {
		rec.NoBid = model.Float(bid.InexactFloat64())
	}
	if price, ok := m.Price(); ok {
		rec.Price = model.Float(price.InexactFloat64())
		dv := decimal.NewFromInt(m.Volume).Mul(price).Round(2)
		rec.DollarVolume = model.Float(dv.InexactFloat64())
	}
	return rec
}

// ToOutcomes returns the Yes and No outcome rows for an APIMarket. Markets
// without a price have no outcomes.
func (m *APIMarket) ToOutcomes(ts time.Time) []model.Outcome {
	price, ok := m.Price()
	if !ok {
		return nil
	}
	vol := model.Float(float64(m.Volume))
	return []model.Outcome{
		{
			MarketID:    m.Ticker,
			OutcomeName: "Yes",
			Price:       model.Float(price.InexactFloat64()),
			Volume:      vol,
			Timestamp:   model.NewTime(ts),
			Source:      model.SourceKalshi,
		},
		{
			MarketID:    m.Ticker,
			OutcomeName: "No",
			Price:       model.Float(decimal.NewFromInt(1).Sub(price).InexactFloat64()),
			Volume:      vol,
			Timestamp:   model.NewTime(ts),
			Source:      model.SourceKalshi,
		},
	}
}
