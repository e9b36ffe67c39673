package model

import (
	"encoding/json"
	"strings"
)

// Market sources as written by the ingest jobs.
const (
	SourceKalshi         = "kalshi"
	SourcePolymarket     = "polymarket"
	SourcePolymarketCLOB = "polymarket_clob"
)

// DefaultCategory labels rows that carry no tags.
const DefaultCategory = "General"

// -----------------------------------------------------------------------------
// Read Types
// -----------------------------------------------------------------------------

// Snapshot is one observed price/volume reading for a market, as served by
// the latest_snapshots view.
type Snapshot struct {
	MarketID   string   `json:"market_id"`
	Source     string   `json:"source"`
	Price      *float64 `json:"price"`
	Volume     *float64 `json:"volume"`
	Timestamp  Time     `json:"timestamp"`
	MarketName string   `json:"market_name"`
	EventName  string   `json:"event_name"`
	Expiration *Time    `json:"expiration"`
	Summary    string   `json:"summary,omitempty"`
	Tags       Tags     `json:"tags,omitempty"`
}

// VolumeOrZero returns the volume, treating a missing value as zero.
func (s Snapshot) VolumeOrZero() float64 {
	if s.Volume == nil {
		return 0
	}
	return *s.Volume
}

// Categories returns the row's tags, or DefaultCategory when untagged.
func (s Snapshot) Categories() []string {
	if len(s.Tags) == 0 {
		return []string{DefaultCategory}
	}
	return s.Tags
}

// Tags is the tag list of a snapshot. It decodes leniently since the
// column is free-form: an array keeps its string elements, a string is a
// single tag, and any other value leaves the row untagged.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	*t = nil

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case []any:
		for _, elem := range v {
			if s, ok := elem.(string); ok && strings.TrimSpace(s) != "" {
				*t = append(*t, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			*t = Tags{s}
		}
	}
	return nil
}

// PricePoint is one historical price sample from market_snapshots.
type PricePoint struct {
	MarketID  string   `json:"market_id,omitempty"`
	Price     *float64 `json:"price"`
	Timestamp Time     `json:"timestamp"`
}

// Row is a snapshot with the fields derived during a render cycle.
// Rows are never persisted.
type Row struct {
	Snapshot
	CleanPrice   *float64 `json:"clean_price"`
	Price24h     *float64 `json:"price_24h"`
	ChangePct    *float64 `json:"change_pct"`
	Price7d      *float64 `json:"price_7d"`
	Change7dPct  *float64 `json:"change_7d_pct"`
	CleanSource  string   `json:"clean_source"`
	DollarVolume *float64 `json:"dollar_volume"`
}

// GroupKey is the display grouping key: event name, else market name,
// else the first 8 characters of the market id.
func (r Row) GroupKey() string {
	if r.EventName != "" {
		return r.EventName
	}
	if r.MarketName != "" {
		return r.MarketName
	}
	if len(r.MarketID) > 8 {
		return r.MarketID[:8]
	}
	return r.MarketID
}

// SectionID is the HTML id used for a group section: lowercased, with
// whitespace runs replaced by a dash.
func SectionID(groupKey string) string {
	return strings.Join(strings.Fields(strings.ToLower(groupKey)), "-")
}

// -----------------------------------------------------------------------------
// Write Types
// -----------------------------------------------------------------------------

// Event is a row in the events table.
type Event struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Source  string `json:"source"`
}

// Market is a row in the markets table.
type Market struct {
	MarketID          string   `json:"market_id"`
	MarketName        string   `json:"market_name"`
	MarketDescription string   `json:"market_description,omitempty"`
	EventName         string   `json:"event_name,omitempty"`
	EventTicker       string   `json:"event_ticker,omitempty"`
	Expiration        *Time    `json:"expiration"`
	Tags              []string `json:"tags"`
	Source            string   `json:"source"`
	Status            string   `json:"status"`
}

// SnapshotRecord is a row inserted into market_snapshots.
type SnapshotRecord struct {
	MarketID     string   `json:"market_id"`
	Price        *float64 `json:"price"`
	YesBid       *float64 `json:"yes_bid"`
	NoBid        *float64 `json:"no_bid"`
	Volume       *float64 `json:"volume"`
	DollarVolume *float64 `json:"dollar_volume"`
	Liquidity    *float64 `json:"liquidity"`
	Expiration   *Time    `json:"expiration"`
	Timestamp    Time     `json:"timestamp"`
	Source       string   `json:"source"`
}

// PriceRecord is a row inserted into market_prices.
type PriceRecord struct {
	MarketID         string   `json:"market_id"`
	Price            *float64 `json:"price"`
	Change24h        *float64 `json:"change_24h"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	Timestamp        Time     `json:"timestamp"`
	Source           string   `json:"source"`
}

// Outcome is a row inserted into market_outcomes.
type Outcome struct {
	MarketID    string   `json:"market_id"`
	OutcomeName string   `json:"outcome_name"`
	Price       *float64 `json:"price"`
	Volume      *float64 `json:"volume"`
	Timestamp   Time     `json:"timestamp"`
	Source      string   `json:"source"`
}

// Batch groups the rows produced by one ingest run.
type Batch struct {
	Events    []Event
	Markets   []Market
	Snapshots []SnapshotRecord
	Prices    []PriceRecord
	Outcomes  []Outcome
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
