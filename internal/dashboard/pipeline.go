package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/prediction-pulse/internal/aggregate"
	"github.com/rickgao/prediction-pulse/internal/enrich"
	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// Reference windows for the change columns.
const (
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
)

// View is the per-request shaping of the row set.
type View struct {
	Sort   aggregate.SortKey
	Dir    aggregate.Direction
	Filter aggregate.Filter
	Limit  int
}

// Result is one rendered cycle.
type Result struct {
	Groups      []aggregate.Group `json:"groups"`
	Sources     []string          `json:"sources"`
	Categories  []string          `json:"categories"`
	Total       int               `json:"total"`
	Shown       int               `json:"shown"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// PipelineConfig holds render-cycle settings.
type PipelineConfig struct {
	SnapshotLimit int
	ChangeMode    enrich.ChangeMode
	CacheTTL      time.Duration
}

// Pipeline fetches and enriches snapshot rows.
type Pipeline struct {
	cfg      PipelineConfig
	reader   store.Reader
	enricher enrich.Enricher
	logger   *slog.Logger
	now      func() time.Time

	flight singleflight.Group

	mu        sync.Mutex
	rows      []model.Row
	fetchedAt time.Time
}

// NewPipeline creates a pipeline reading from reader.
func NewPipeline(cfg PipelineConfig, reader store.Reader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SnapshotLimit < 1 {
		cfg.SnapshotLimit = 1000
	}
	return &Pipeline{
		cfg:      cfg,
		reader:   reader,
		enricher: enrich.Enricher{Mode: cfg.ChangeMode},
		logger:   logger,
		now:      time.Now,
	}
}

// Rows returns the enriched row set, from cache when fresh.
func (p *Pipeline) Rows(ctx context.Context) ([]model.Row, time.Time, error) {
	p.mu.Lock()
	if p.rows != nil && p.cfg.CacheTTL > 0 && p.now().Sub(p.fetchedAt) < p.cfg.CacheTTL {
		rows, at := p.rows, p.fetchedAt
		p.mu.Unlock()
		return rows, at, nil
	}
	p.mu.Unlock()

	return p.Refresh(ctx)
}

// Refresh runs a fetch cycle regardless of the cache. Concurrent callers
// share one fetch.
func (p *Pipeline) Refresh(ctx context.Context) ([]model.Row, time.Time, error) {
	v, err, _ := p.flight.Do("rows", func() (any, error) {
		rows, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.rows, p.fetchedAt = rows, p.now()
		p.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	p.mu.Lock()
	at := p.fetchedAt
	p.mu.Unlock()
	return v.([]model.Row), at, nil
}

func (p *Pipeline) fetch(ctx context.Context) ([]model.Row, error) {
	start := p.now()

	latest, err := p.reader.Latest(ctx, p.cfg.SnapshotLimit)
	if err != nil {
		return nil, err
	}

	snaps := aggregate.Dedupe(aggregate.FilterVolume(latest))
	if len(snaps) == 0 {
		return nil, store.ErrNoRows
	}

	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.MarketID
	}

	var prev24, prev7 map[string]*float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := p.previous(gctx, ids, start, Window24h)
		prev24 = m
		return err
	})
	g.Go(func() error {
		m, err := p.previous(gctx, ids, start, Window7d)
		prev7 = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := p.enricher.Enrich(snaps, prev24, prev7)

	p.logger.Debug("render cycle fetched",
		"snapshots", len(latest),
		"rows", len(rows),
		"with_24h", len(prev24),
		"with_7d", len(prev7),
		"duration", time.Since(start),
	)
	return rows, nil
}

// previous looks up the most recent price at least window old, searching
// back one more window.
func (p *Pipeline) previous(ctx context.Context, ids []string, now time.Time, window time.Duration) (map[string]*float64, error) {
	before := now.Add(-window)
	points, err := p.reader.PricesBefore(ctx, ids, before, before.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("previous prices (%s): %w", window, err)
	}
	return enrich.PreviousPrices(points), nil
}

// Load runs a render cycle shaped by v.
func (p *Pipeline) Load(ctx context.Context, v View) (*Result, error) {
	rows, at, err := p.Rows(ctx)
	if err != nil {
		return nil, err
	}

	shown := v.Filter.Apply(rows)
	aggregate.Sort(shown, v.Sort, v.Dir)
	shown = aggregate.Limit(shown, v.Limit)

	return &Result{
		Groups:      aggregate.GroupByEvent(shown),
		Sources:     aggregate.Sources(rows),
		Categories:  aggregate.Categories(rows),
		Total:       len(rows),
		Shown:       len(shown),
		GeneratedAt: at.UTC(),
	}, nil
}

// Movers returns up to limit rows by absolute 24-hour change. When
// minChange or minVolume is positive only rows meeting both are returned.
func (p *Pipeline) Movers(ctx context.Context, limit int, minChange, minVolume float64) ([]model.Row, error) {
	rows, _, err := p.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if minChange > 0 || minVolume > 0 {
		return aggregate.Limit(aggregate.BigMovers(rows, minChange, minVolume), limit), nil
	}
	return aggregate.TopMovers(rows, limit), nil
}

// History returns one market's price history, oldest first.
func (p *Pipeline) History(ctx context.Context, marketID string) ([]model.PricePoint, error) {
	return p.reader.History(ctx, marketID)
}
