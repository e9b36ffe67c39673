package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/polymarket"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// PolymarketSource is the part of the Polymarket client the job uses.
type PolymarketSource interface {
	GammaMarkets(ctx context.Context) ([]polymarket.GammaMarket, error)
	CLOBMarket(ctx context.Context, id string) (*polymarket.CLOBMarket, error)
}

// PolymarketConfig tunes the Polymarket job.
type PolymarketConfig struct {
	TopN        int // markets kept after the live filter
	Concurrency int // concurrent CLOB lookups
}

// PolymarketJob loads the highest-volume live Polymarket markets priced on
// the CLOB.
type PolymarketJob struct {
	cfg    PolymarketConfig
	source PolymarketSource
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewPolymarketJob creates a job reading from source and writing to sink.
func NewPolymarketJob(cfg PolymarketConfig, source PolymarketSource, sink Sink, logger *slog.Logger) *PolymarketJob {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 1000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &PolymarketJob{cfg: cfg, source: source, sink: sink, logger: logger, now: time.Now}
}

// Name implements poller.Job.
func (j *PolymarketJob) Name() string { return model.SourcePolymarket }

// Run filters the Gamma listing, prices the survivors on the CLOB and
// writes one batch. Markets the CLOB does not list or price are skipped.
func (j *PolymarketJob) Run(ctx context.Context) (Result, error) {
	start := j.now()
	res := Result{Job: j.Name(), RunID: uuid.NewString()}
	logger := j.logger.With("job", res.Job, "run_id", res.RunID)

	gamma, err := j.source.GammaMarkets(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch gamma markets: %w", err)
	}
	top := polymarket.TopLive(gamma, start, j.cfg.TopN)
	logger.Info("polymarket markets kept after filter", "fetched", len(gamma), "kept", len(top))

	clobs := make([]*polymarket.CLOBMarket, len(top))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)
	for i, m := range top {
		g.Go(func() error {
			c, err := j.source.CLOBMarket(gctx, m.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("clob lookup failed", "market_id", m.ID, "error", err)
				failed.Add(1)
				return nil
			}
			clobs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("fetch clob prices: %w", err)
	}

	ts := start.UTC()
	var batch model.Batch
	for i, m := range top {
		snap, outcomes, ok := polymarket.ToRecords(m, clobs[i], ts)
		if !ok {
			res.Skipped++
			continue
		}
		batch.Markets = append(batch.Markets, polymarket.ToMarket(m))
		batch.Snapshots = append(batch.Snapshots, snap)
		batch.Outcomes = append(batch.Outcomes, outcomes...)
	}

	prices, err := priceRecords(ctx, j.sink, batch.Snapshots, start)
	if err != nil {
		logger.Warn("skipping price changes", "error", err)
	}
	batch.Prices = prices

	if err := store.WriteBatch(ctx, j.sink, batch, logger); err != nil {
		return res, err
	}

	res.Markets = len(batch.Markets)
	res.Snapshots = len(batch.Snapshots)
	res.Outcomes = len(batch.Outcomes)
	res.Duration = time.Since(start)

	logger.Info("polymarket ingest complete",
		"markets", res.Markets,
		"skipped", res.Skipped,
		"clob_errors", failed.Load(),
		"duration", res.Duration,
	)
	return res, nil
}
