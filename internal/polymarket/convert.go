package polymarket

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/prediction-pulse/internal/model"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
)

// liveStatuses are the Gamma states that count as trading.
var liveStatuses = []string{"TRADING", "OPEN", "ACTIVE"}

// IsLive reports whether m is trading, not yet ended and has volume. A
// missing or unparseable end time counts as open.
func IsLive(m GammaMarket, now time.Time) bool {
	if !slices.Contains(liveStatuses, strings.ToUpper(m.Status)) {
		return false
	}
	if m.EndTime != "" {
		if end, err := model.ParseTime(m.EndTime); err == nil && !end.After(now) {
			return false
		}
	}
	return m.Volume.IsPositive()
}

// TopLive filters markets to live ones and keeps the n largest by volume.
func TopLive(markets []GammaMarket, now time.Time, n int) []GammaMarket {
	var live []GammaMarket
	for _, m := range markets {
		if IsLive(m, now) {
			live = append(live, m)
		}
	}
	slices.SortStableFunc(live, func(a, b GammaMarket) int {
		return b.Volume.Cmp(a.Volume)
	})
	if n > 0 && len(live) > n {
		live = live[:n]
	}
	return live
}

// Probability blends the yes price and the complement of the no price,
// both in cents, into one probability rounded to 4 places.
func Probability(yes, no decimal.Decimal) decimal.Decimal {
	y := yes.Div(hundred)
	n := one.Sub(no.Div(hundred))
	return y.Add(n).Div(two).Round(4)
}

// ToMarket converts a Gamma market to a markets row.
func ToMarket(m GammaMarket) model.Market {
	var exp *model.Time
	if t, err := model.ParseTime(m.EndTime); err == nil {
		exp = &t
	}
	tags := m.Categories
	if tags == nil {
		tags = []string{}
	}
	return model.Market{
		MarketID:          m.ID,
		MarketName:        m.Name(),
		MarketDescription: m.Description,
		Expiration:        exp,
		Tags:              tags,
		Source:            model.SourcePolymarket,
		Status:            cmp.Or(strings.ToUpper(m.Status), "TRADING"),
	}
}

// ToRecords builds the snapshot and Yes/No outcome rows for one market
// priced on the CLOB at ts. ok is false when the CLOB has no prices.
func ToRecords(m GammaMarket, clob *CLOBMarket, ts time.Time) (model.SnapshotRecord, []model.Outcome, bool) {
	if clob == nil {
		return model.SnapshotRecord{}, nil, false
	}
	yes, no, ok := clob.Prices()
	if !ok {
		return model.SnapshotRecord{}, nil, false
	}

	at := model.NewTime(ts)
	price := Probability(yes, no)
	snap := model.SnapshotRecord{
		MarketID:     m.ID,
		Price:        model.Float(price.InexactFloat64()),
		YesBid:       model.Float(yes.Div(hundred).InexactFloat64()),
		NoBid:        model.Float(no.Div(hundred).InexactFloat64()),
		Volume:       model.Float(m.Volume.InexactFloat64()),
		DollarVolume: model.Float(m.Volume.Mul(price).Round(2).InexactFloat64()),
		Liquidity:    model.Float(m.Liquidity.InexactFloat64()),
		Timestamp:    at,
		Source:       model.SourcePolymarketCLOB,
	}

	outcomes := []model.Outcome{
		{
			MarketID:    m.ID,
			OutcomeName: "Yes",
			Price:       model.Float(yes.Div(hundred).InexactFloat64()),
			Timestamp:   at,
			Source:      model.SourcePolymarketCLOB,
		},
		{
			MarketID:    m.ID,
			OutcomeName: "No",
			Price:       model.Float(one.Sub(no.Div(hundred)).InexactFloat64()),
			Timestamp:   at,
			Source:      model.SourcePolymarketCLOB,
		},
	}
	return snap, outcomes, true
}
