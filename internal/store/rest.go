package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/postgrest"
)

// idChunk bounds the number of ids in one in.() filter to keep URLs short.
const idChunk = 200

var latestColumns = []string{
	"market_id", "source", "price", "volume", "timestamp",
	"market_name", "event_name", "expiration", "summary", "tags",
}

// REST implements Store over the backend's REST API.
type REST struct {
	read   *postgrest.Client
	write  *postgrest.Client
	logger *slog.Logger
}

// NewREST creates a REST store. Reads use the anon-key client; writes and
// deletes use write, falling back to read when nil.
func NewREST(read, write *postgrest.Client, logger *slog.Logger) *REST {
	if write == nil {
		write = read
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &REST{read: read, write: write, logger: logger}
}

// Latest returns up to limit rows of the latest snapshot view.
func (s *REST) Latest(ctx context.Context, limit int) ([]model.Snapshot, error) {
	q := postgrest.NewQuery().Select(latestColumns...).Limit(limit)

	var rows []model.Snapshot
	if err := s.read.Select(ctx, TableLatest, q, &rows); err != nil {
		return nil, fmt.Errorf("fetch latest snapshots: %w", err)
	}
	return rows, nil
}

// PricesBefore returns samples in [after, before) for ids, newest first per id.
func (s *REST) PricesBefore(ctx context.Context, ids []string, before, after time.Time) ([]model.PricePoint, error) {
	var out []model.PricePoint
	for start := 0; start < len(ids); start += idChunk {
		end := min(start+idChunk, len(ids))
		q := postgrest.NewQuery().
			Select("market_id", "price", "timestamp").
			In("market_id", ids[start:end]).
			Lt("timestamp", postgrest.FormatTime(before)).
			Gte("timestamp", postgrest.FormatTime(after)).
			Order("timestamp", true)

		var rows []model.PricePoint
		if err := s.read.Select(ctx, TableSnapshots, q, &rows); err != nil {
			return nil, fmt.Errorf("fetch previous prices: %w", err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// History returns the full price history for one market, oldest first.
func (s *REST) History(ctx context.Context, marketID string) ([]model.PricePoint, error) {
	q := postgrest.NewQuery().
		Select("timestamp", "price").
		Eq("market_id", marketID).
		Order("timestamp", false)

	var rows []model.PricePoint
	if err := s.read.Select(ctx, TableSnapshots, q, &rows); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", marketID, err)
	}
	for i := range rows {
		rows[i].MarketID = marketID
	}
	return rows, nil
}

// UpsertEvents upserts events keyed on event_id.
func (s *REST) UpsertEvents(ctx context.Context, events []model.Event) (int, error) {
	return postgrest.Insert(ctx, s.write, TableEvents, events, "event_id")
}

// UpsertMarkets upserts markets keyed on market_id.
func (s *REST) UpsertMarkets(ctx context.Context, markets []model.Market) (int, error) {
	return postgrest.Insert(ctx, s.write, TableMarkets, markets, "market_id")
}

// InsertSnapshots appends snapshot rows.
func (s *REST) InsertSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) (int, error) {
	return postgrest.Insert(ctx, s.write, TableSnapshots, snapshots, "")
}

// InsertPrices appends price-change rows.
func (s *REST) InsertPrices(ctx context.Context, prices []model.PriceRecord) (int, error) {
	return postgrest.Insert(ctx, s.write, TablePrices, prices, "")
}

// InsertOutcomes appends outcome rows.
func (s *REST) InsertOutcomes(ctx context.Context, outcomes []model.Outcome) (int, error) {
	return postgrest.Insert(ctx, s.write, TableOutcomes, outcomes, "")
}

// DeleteSnapshotsBefore deletes snapshots older than cutoff.
func (s *REST) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	q := postgrest.NewQuery().Lt("timestamp", postgrest.FormatTime(cutoff))
	return s.write.Delete(ctx, TableSnapshots, q)
}

// ExpiredMarketIDs lists markets whose expiration is before now.
func (s *REST) ExpiredMarketIDs(ctx context.Context, now time.Time) ([]string, error) {
	q := postgrest.NewQuery().
		Select("market_id").
		Lt("expiration", postgrest.FormatTime(now))

	var rows []struct {
		MarketID string `json:"market_id"`
	}
	if err := s.write.Select(ctx, TableMarkets, q, &rows); err != nil {
		return nil, fmt.Errorf("fetch expired markets: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.MarketID)
	}
	return ids, nil
}

// DeleteOutcomes deletes outcomes for the given markets.
func (s *REST) DeleteOutcomes(ctx context.Context, marketIDs []string) (int, error) {
	total := 0
	for start := 0; start < len(marketIDs); start += idChunk {
		end := min(start+idChunk, len(marketIDs))
		n, err := s.write.Delete(ctx, TableOutcomes, postgrest.NewQuery().In("market_id", marketIDs[start:end]))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DeleteExpiredSnapshots deletes snapshots whose market expired before now.
func (s *REST) DeleteExpiredSnapshots(ctx context.Context, now time.Time) (int, error) {
	q := postgrest.NewQuery().Lt("expiration", postgrest.FormatTime(now))
	return s.write.Delete(ctx, TableSnapshots, q)
}

// DeleteExpiredMarkets deletes markets that expired before now.
func (s *REST) DeleteExpiredMarkets(ctx context.Context, now time.Time) (int, error) {
	q := postgrest.NewQuery().Lt("expiration", postgrest.FormatTime(now))
	return s.write.Delete(ctx, TableMarkets, q)
}

// DeleteMarketsByStatus deletes markets in any of the given statuses.
func (s *REST) DeleteMarketsByStatus(ctx context.Context, statuses []string) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	return s.write.Delete(ctx, TableMarkets, postgrest.NewQuery().In("status", statuses))
}

// DeleteLowVolumeMarkets is not available over REST: volume lives on the
// snapshot view, which cannot be joined in a delete filter.
func (s *REST) DeleteLowVolumeMarkets(ctx context.Context, threshold float64) (int, error) {
	return 0, ErrUnsupported
}
