package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements store.Store over a Postgres pool.
type Store struct {
	db        DB
	logger    *slog.Logger
	chunkSize int
}

var _ store.Store = (*Store)(nil)

// NewStore wraps db. chunkSize bounds the rows queued per batch.
func NewStore(db DB, chunkSize int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if chunkSize < 1 {
		chunkSize = 500
	}
	return &Store{db: db, logger: logger, chunkSize: chunkSize}
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

const latestSQL = `
	SELECT market_id, source, price, volume, timestamp, market_name, event_name,
	       expiration, summary, tags
	FROM latest_snapshots
	LIMIT $1`

// Latest returns up to limit rows of the latest snapshot view.
func (s *Store) Latest(ctx context.Context, limit int) ([]model.Snapshot, error) {
	rows, err := s.db.Query(ctx, latestSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var (
			snap       model.Snapshot
			source     *string
			name       *string
			event      *string
			summary    *string
			ts         time.Time
			expiration *time.Time
			tags       []string
		)
		if err := rows.Scan(&snap.MarketID, &source, &snap.Price, &snap.Volume, &ts,
			&name, &event, &expiration, &summary, &tags); err != nil {
			return nil, fmt.Errorf("scan latest snapshot: %w", err)
		}
		snap.Source = deref(source)
		snap.MarketName = deref(name)
		snap.EventName = deref(event)
		snap.Summary = deref(summary)
		snap.Tags = tags
		snap.Timestamp = model.NewTime(ts)
		snap.Expiration = toModelTime(expiration)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest snapshots: %w", err)
	}
	return out, nil
}

// The inner DISTINCT ON keeps the newest sample per market inside the window.
const pricesBeforeSQL = `
	SELECT market_id, price, timestamp FROM (
		SELECT DISTINCT ON (market_id) market_id, price, timestamp
		FROM market_snapshots
		WHERE market_id = ANY($1) AND timestamp < $2 AND timestamp >= $3
		ORDER BY market_id, timestamp DESC
	) s
	ORDER BY timestamp DESC`

// PricesBefore returns the newest sample per id in [after, before).
func (s *Store) PricesBefore(ctx context.Context, ids []string, before, after time.Time) ([]model.PricePoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, pricesBeforeSQL, ids, before.UTC(), after.UTC())
	if err != nil {
		return nil, fmt.Errorf("query previous prices: %w", err)
	}
	return collectPoints(rows)
}

const historySQL = `
	SELECT market_id, price, timestamp
	FROM market_snapshots
	WHERE market_id = $1
	ORDER BY timestamp ASC`

// History returns every sample for one market, oldest first.
func (s *Store) History(ctx context.Context, marketID string) ([]model.PricePoint, error) {
	rows, err := s.db.Query(ctx, historySQL, marketID)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", marketID, err)
	}
	return collectPoints(rows)
}

func collectPoints(rows pgx.Rows) ([]model.PricePoint, error) {
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var (
			p  model.PricePoint
			ts time.Time
		)
		if err := rows.Scan(&p.MarketID, &p.Price, &ts); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Timestamp = model.NewTime(ts)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

const upsertEventSQL = `
	INSERT INTO events (event_id, title, source)
	VALUES ($1, $2, $3)
	ON CONFLICT (event_id) DO UPDATE SET title = EXCLUDED.title, source = EXCLUDED.source`

// UpsertEvents upserts events keyed on event_id.
func (s *Store) UpsertEvents(ctx context.Context, events []model.Event) (int, error) {
	return sendChunked(ctx, s, "events", events, func(b *pgx.Batch, e model.Event) {
		b.Queue(upsertEventSQL, e.EventID, e.Title, e.Source)
	})
}

const upsertMarketSQL = `
	INSERT INTO markets (market_id, market_name, market_description, event_name, event_ticker,
	                     expiration, tags, source, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (market_id) DO UPDATE SET
		market_name = EXCLUDED.market_name,
		market_description = EXCLUDED.market_description,
		event_name = EXCLUDED.event_name,
		event_ticker = EXCLUDED.event_ticker,
		expiration = EXCLUDED.expiration,
		tags = EXCLUDED.tags,
		source = EXCLUDED.source,
		status = EXCLUDED.status`

// UpsertMarkets upserts markets keyed on market_id.
func (s *Store) UpsertMarkets(ctx context.Context, markets []model.Market) (int, error) {
	return sendChunked(ctx, s, "markets", markets, func(b *pgx.Batch, m model.Market) {
		b.Queue(upsertMarketSQL, m.MarketID, m.MarketName, m.MarketDescription, m.EventName,
			m.EventTicker, fromModelTime(m.Expiration), m.Tags, m.Source, m.Status)
	})
}

const insertSnapshotSQL = `
	INSERT INTO market_snapshots (market_id, price, yes_bid, no_bid, volume, dollar_volume,
	                              liquidity, expiration, timestamp, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// InsertSnapshots appends snapshot rows.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) (int, error) {
	return sendChunked(ctx, s, "market_snapshots", snapshots, func(b *pgx.Batch, r model.SnapshotRecord) {
		b.Queue(insertSnapshotSQL, r.MarketID, r.Price, r.YesBid, r.NoBid, r.Volume, r.DollarVolume,
			r.Liquidity, fromModelTime(r.Expiration), r.Timestamp.Time, r.Source)
	})
}

const insertPriceSQL = `
	INSERT INTO market_prices (market_id, price, change_24h, percent_change_24h, timestamp, source)
	VALUES ($1, $2, $3, $4, $5, $6)`

// InsertPrices appends price-change rows.
func (s *Store) InsertPrices(ctx context.Context, prices []model.PriceRecord) (int, error) {
	return sendChunked(ctx, s, "market_prices", prices, func(b *pgx.Batch, r model.PriceRecord) {
		b.Queue(insertPriceSQL, r.MarketID, r.Price, r.Change24h, r.PercentChange24h, r.Timestamp.Time, r.Source)
	})
}

const insertOutcomeSQL = `
	INSERT INTO market_outcomes (market_id, outcome_name, price, volume, timestamp, source)
	VALUES ($1, $2, $3, $4, $5, $6)`

// InsertOutcomes appends outcome rows.
func (s *Store) InsertOutcomes(ctx context.Context, outcomes []model.Outcome) (int, error) {
	return sendChunked(ctx, s, "market_outcomes", outcomes, func(b *pgx.Batch, o model.Outcome) {
		b.Queue(insertOutcomeSQL, o.MarketID, o.OutcomeName, o.Price, o.Volume, o.Timestamp.Time, o.Source)
	})
}

// sendChunked queues rows into pgx batches of at most chunkSize statements.
func sendChunked[T any](ctx context.Context, s *Store, table string, rows []T, queue func(*pgx.Batch, T)) (int, error) {
	if len(rows) == 0 {
		s.logger.Warn("no rows to insert", "table", table)
		return 0, nil
	}

	written := 0
	for start := 0; start < len(rows); start += s.chunkSize {
		end := min(start+s.chunkSize, len(rows))

		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			queue(batch, r)
		}
		if err := execBatch(ctx, s.db, batch); err != nil {
			return written, fmt.Errorf("insert %s: %w", table, err)
		}
		written += end - start
	}

	s.logger.Info("inserted rows", "table", table, "rows", written)
	return written, nil
}

func execBatch(ctx context.Context, db DB, batch *pgx.Batch) error {
	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Deletes
// -----------------------------------------------------------------------------

// DeleteSnapshotsBefore deletes snapshots older than cutoff.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.exec(ctx, "market_snapshots", `DELETE FROM market_snapshots WHERE timestamp < $1`, cutoff.UTC())
}

// ExpiredMarketIDs lists markets whose expiration is before now.
func (s *Store) ExpiredMarketIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT market_id FROM markets WHERE expiration < $1`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query expired markets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect expired markets: %w", err)
	}
	return ids, nil
}

// DeleteOutcomes deletes outcomes for the given markets.
func (s *Store) DeleteOutcomes(ctx context.Context, marketIDs []string) (int, error) {
	if len(marketIDs) == 0 {
		return 0, nil
	}
	return s.exec(ctx, "market_outcomes", `DELETE FROM market_outcomes WHERE market_id = ANY($1)`, marketIDs)
}

// DeleteExpiredSnapshots deletes snapshots whose market expired before now.
func (s *Store) DeleteExpiredSnapshots(ctx context.Context, now time.Time) (int, error) {
	return s.exec(ctx, "market_snapshots", `DELETE FROM market_snapshots WHERE expiration < $1`, now.UTC())
}

// DeleteExpiredMarkets deletes markets that expired before now.
func (s *Store) DeleteExpiredMarkets(ctx context.Context, now time.Time) (int, error) {
	return s.exec(ctx, "markets", `DELETE FROM markets WHERE expiration < $1`, now.UTC())
}

// DeleteMarketsByStatus deletes markets in any of the given statuses.
func (s *Store) DeleteMarketsByStatus(ctx context.Context, statuses []string) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	return s.exec(ctx, "markets", `DELETE FROM markets WHERE status = ANY($1)`, statuses)
}

// DeleteLowVolumeMarkets removes markets whose latest volume is below
// threshold, along with their outcomes and snapshots, in one transaction.
func (s *Store) DeleteLowVolumeMarkets(ctx context.Context, threshold float64) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin low-volume cleanup: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT market_id FROM latest_snapshots WHERE COALESCE(volume, 0) < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("query low-volume markets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("collect low-volume markets: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	for _, stmt := range []string{
		`DELETE FROM market_outcomes WHERE market_id = ANY($1)`,
		`DELETE FROM market_snapshots WHERE market_id = ANY($1)`,
	} {
		if _, err := tx.Exec(ctx, stmt, ids); err != nil {
			return 0, fmt.Errorf("delete low-volume children: %w", err)
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM markets WHERE market_id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete low-volume markets: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit low-volume cleanup: %w", err)
	}

	n := int(tag.RowsAffected())
	s.logger.Info("deleted rows", "table", "markets", "rows", n, "reason", "low_volume")
	return n, nil
}

func (s *Store) exec(ctx context.Context, table, sql string, args ...any) (int, error) {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	n := int(tag.RowsAffected())
	s.logger.Info("deleted rows", "table", table, "rows", n)
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toModelTime(t *time.Time) *model.Time {
	if t == nil {
		return nil
	}
	mt := model.NewTime(*t)
	return &mt
}

func fromModelTime(t *model.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
