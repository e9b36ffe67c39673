package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/prediction-pulse/internal/enrich"
	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// priceWindow is how far back market_prices rows look for a reference.
const priceWindow = 24 * time.Hour

// Sink is where jobs write. PricesBefore supplies the reference prices for
// market_prices rows.
type Sink interface {
	store.Writer
	PricesBefore(ctx context.Context, ids []string, before, after time.Time) ([]model.PricePoint, error)
}

// Result summarizes one job run.
type Result struct {
	Job       string
	RunID     string
	Events    int
	Markets   int
	Snapshots int
	Outcomes  int
	Skipped   int
	Duration  time.Duration
}

// priceRecords builds one market_prices row per snapshot with its change
// against the most recent sample between one and two windows old.
func priceRecords(ctx context.Context, sink Sink, snaps []model.SnapshotRecord, now time.Time) ([]model.PriceRecord, error) {
	if len(snaps) == 0 {
		return nil, nil
	}

	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.MarketID
	}

	before := now.Add(-priceWindow)
	points, err := sink.PricesBefore(ctx, ids, before, before.Add(-priceWindow))
	if err != nil {
		return nil, fmt.Errorf("reference prices: %w", err)
	}
	prev := enrich.PreviousPrices(points)

	out := make([]model.PriceRecord, 0, len(snaps))
	for _, s := range snaps {
		rec := model.PriceRecord{
			MarketID:  s.MarketID,
			Price:     s.Price,
			Timestamp: s.Timestamp,
			Source:    s.Source,
		}
		if p := prev[s.MarketID]; p != nil && s.Price != nil {
			rec.Change24h = round(*s.Price-*p, 4)
			if pct := enrich.ChangePct(s.Price, p, enrich.ChangeRelative); pct != nil {
				rec.PercentChange24h = round(*pct, 2)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func round(v float64, places int32) *float64 {
	return model.Float(decimal.NewFromFloat(v).Round(places).InexactFloat64())
}
