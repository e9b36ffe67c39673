package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/prediction-pulse/internal/api"
	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// KalshiSource is the part of the Kalshi client the job uses.
type KalshiSource interface {
	GetAllEvents(ctx context.Context, status string) ([]api.APIEvent, error)
	GetOpenMarkets(ctx context.Context) ([]api.APIMarket, error)
}

// KalshiJob loads open Kalshi events and markets.
type KalshiJob struct {
	source KalshiSource
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewKalshiJob creates a job reading from source and writing to sink.
func NewKalshiJob(source KalshiSource, sink Sink, logger *slog.Logger) *KalshiJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &KalshiJob{source: source, sink: sink, logger: logger, now: time.Now}
}

// Name implements poller.Job.
func (j *KalshiJob) Name() string { return model.SourceKalshi }

// Run fetches events and markets concurrently and writes them as one batch.
func (j *KalshiJob) Run(ctx context.Context) (Result, error) {
	start := j.now()
	res := Result{Job: j.Name(), RunID: uuid.NewString()}
	logger := j.logger.With("job", res.Job, "run_id", res.RunID)

	var (
		events  []api.APIEvent
		markets []api.APIMarket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = j.source.GetAllEvents(gctx, api.StatusOpen)
		return err
	})
	g.Go(func() error {
		var err error
		markets, err = j.source.GetOpenMarkets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("fetch kalshi: %w", err)
	}

	batch, skipped := buildKalshiBatch(events, markets, start.UTC())
	res.Skipped = skipped

	if err := writeKalshiBatch(ctx, j.sink, batch, start, &res, logger); err != nil {
		return res, err
	}
	logger.Info("kalshi ingest complete",
		"events", res.Events,
		"markets", res.Markets,
		"skipped", res.Skipped,
		"duration", res.Duration,
	)
	return res, nil
}

// KalshiLookup fetches single Kalshi markets and events.
type KalshiLookup interface {
	GetMarket(ctx context.Context, ticker string) (*api.APIMarket, error)
	GetEvent(ctx context.Context, eventTicker string) (*api.APIEvent, error)
}

// KalshiRefreshJob re-reads a fixed list of markets, and their events, one
// request each. Unknown tickers are skipped.
type KalshiRefreshJob struct {
	lookup  KalshiLookup
	sink    Sink
	tickers []string
	logger  *slog.Logger
	now     func() time.Time
}

// NewKalshiRefreshJob creates a job refreshing tickers from lookup into sink.
func NewKalshiRefreshJob(lookup KalshiLookup, sink Sink, tickers []string, logger *slog.Logger) *KalshiRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &KalshiRefreshJob{lookup: lookup, sink: sink, tickers: tickers, logger: logger, now: time.Now}
}

// Name implements poller.Job.
func (j *KalshiRefreshJob) Name() string { return model.SourceKalshi + "-refresh" }

// Run fetches each ticker and its event and writes them as one batch.
func (j *KalshiRefreshJob) Run(ctx context.Context) (Result, error) {
	start := j.now()
	res := Result{Job: j.Name(), RunID: uuid.NewString()}
	logger := j.logger.With("job", res.Job, "run_id", res.RunID)

	var (
		markets []api.APIMarket
		events  []api.APIEvent
		seen    = make(map[string]bool)
	)
	for _, ticker := range j.tickers {
		m, err := j.lookup.GetMarket(ctx, ticker)
		if api.IsNotFound(err) {
			logger.Warn("market not found", "ticker", ticker)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("fetch kalshi market: %w", err)
		}
		markets = append(markets, *m)

		if m.EventTicker == "" || seen[m.EventTicker] {
			continue
		}
		seen[m.EventTicker] = true

		ev, err := j.lookup.GetEvent(ctx, m.EventTicker)
		if api.IsNotFound(err) {
			logger.Warn("event not found", "event_ticker", m.EventTicker)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("fetch kalshi event: %w", err)
		}
		events = append(events, *ev)
	}

	batch, skipped := buildKalshiBatch(events, markets, start.UTC())
	res.Skipped += skipped

	if err := writeKalshiBatch(ctx, j.sink, batch, start, &res, logger); err != nil {
		return res, err
	}
	logger.Info("kalshi refresh complete",
		"tickers", len(j.tickers),
		"markets", res.Markets,
		"skipped", res.Skipped,
	)
	return res, nil
}

// writeKalshiBatch attaches market_prices rows to batch, writes it and
// fills the counts in res.
func writeKalshiBatch(ctx context.Context, sink Sink, batch model.Batch, start time.Time, res *Result, logger *slog.Logger) error {
	prices, err := priceRecords(ctx, sink, batch.Snapshots, start)
	if err != nil {
		logger.Warn("skipping price changes", "error", err)
	}
	batch.Prices = prices

	if err := store.WriteBatch(ctx, sink, batch, logger); err != nil {
		return err
	}

	res.Events = len(batch.Events)
	res.Markets = len(batch.Markets)
	res.Snapshots = len(batch.Snapshots)
	res.Outcomes = len(batch.Outcomes)
	res.Duration = time.Since(start)
	return nil
}

// buildKalshiBatch joins markets to their events. Markets without a ticker
// are skipped; events are written only once.
func buildKalshiBatch(events []api.APIEvent, markets []api.APIMarket, ts time.Time) (model.Batch, int) {
	var b model.Batch

	byTicker := make(map[string]*api.APIEvent, len(events))
	for i := range events {
		e := &events[i]
		if e.EventTicker == "" {
			continue
		}
		if _, dup := byTicker[e.EventTicker]; dup {
			continue
		}
		byTicker[e.EventTicker] = e
		b.Events = append(b.Events, e.ToEvent())
	}

	skipped := 0
	for i := range markets {
		m := &markets[i]
		if m.Ticker == "" {
			skipped++
			continue
		}
		b.Markets = append(b.Markets, m.ToMarket(byTicker[m.EventTicker]))
		b.Snapshots = append(b.Snapshots, m.ToSnapshot(ts))
		b.Outcomes = append(b.Outcomes, m.ToOutcomes(ts)...)
	}
	return b, skipped
}
