package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// Table and view names on the backend.
const (
	TableLatest    = "latest_snapshots"
	TableSnapshots = "market_snapshots"
	TableMarkets   = "markets"
	TableEvents    = "events"
	TablePrices    = "market_prices"
	TableOutcomes  = "market_outcomes"
)

var (
	// ErrNoRows means the latest snapshot set had no usable rows.
	ErrNoRows = errors.New("no market data")

	// ErrUnsupported means the backend cannot perform the operation.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// Reader serves the dashboard's queries.
type Reader interface {
	// Latest returns up to limit rows of the latest snapshot view, unordered.
	Latest(ctx context.Context, limit int) ([]model.Snapshot, error)

	// PricesBefore returns samples for ids with after <= timestamp < before,
	// ordered by timestamp descending.
	PricesBefore(ctx context.Context, ids []string, before, after time.Time) ([]model.PricePoint, error)

	// History returns every sample for one market, oldest first.
	History(ctx context.Context, marketID string) ([]model.PricePoint, error)
}

// Writer persists ingest output.
type Writer interface {
	UpsertEvents(ctx context.Context, events []model.Event) (int, error)
	UpsertMarkets(ctx context.Context, markets []model.Market) (int, error)
	InsertSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) (int, error)
	InsertPrices(ctx context.Context, prices []model.PriceRecord) (int, error)
	InsertOutcomes(ctx context.Context, outcomes []model.Outcome) (int, error)
}

// Janitor prunes old and expired data.
type Janitor interface {
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error)
	ExpiredMarketIDs(ctx context.Context, now time.Time) ([]string, error)
	DeleteOutcomes(ctx context.Context, marketIDs []string) (int, error)
	DeleteExpiredSnapshots(ctx context.Context, now time.Time) (int, error)
	DeleteExpiredMarkets(ctx context.Context, now time.Time) (int, error)
	DeleteMarketsByStatus(ctx context.Context, statuses []string) (int, error)
	DeleteLowVolumeMarkets(ctx context.Context, threshold float64) (int, error)
}

// Store is implemented by every backend.
type Store interface {
	Reader
	Writer
	Janitor
}

// WriteBatch writes an ingest batch parents first, so markets exist before
// the snapshots and outcomes that reference them.
func WriteBatch(ctx context.Context, w Writer, b model.Batch, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	steps := []struct {
		table string
		write func() (int, error)
		rows  int
	}{
		{TableEvents, func() (int, error) { return w.UpsertEvents(ctx, b.Events) }, len(b.Events)},
		{TableMarkets, func() (int, error) { return w.UpsertMarkets(ctx, b.Markets) }, len(b.Markets)},
		{TableSnapshots, func() (int, error) { return w.InsertSnapshots(ctx, b.Snapshots) }, len(b.Snapshots)},
		{TablePrices, func() (int, error) { return w.InsertPrices(ctx, b.Prices) }, len(b.Prices)},
		{TableOutcomes, func() (int, error) { return w.InsertOutcomes(ctx, b.Outcomes) }, len(b.Outcomes)},
	}

	for _, s := range steps {
		if s.rows == 0 {
			continue
		}
		n, err := s.write()
		if err != nil {
			return fmt.Errorf("write %s: %w", s.table, err)
		}
		logger.Debug("wrote rows", "table", s.table, "rows", n)
	}
	return nil
}
