package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job.
func (f JobFunc) Name() string { return f.JobName }

// Run implements Job.
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5m)
	Concurrency int           // Max concurrent jobs (default: 2)
	Timeout     time.Duration // Per-run timeout (default: interval)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		Concurrency: 2,
		Timeout:     5 * time.Minute,
	}
}

// Stats counts runs since start.
type Stats struct {
	Cycles   int64
	Runs     int64
	Failures int64
}

// Poller periodically runs its jobs.
type Poller struct {
	cfg    Config
	jobs   []Job
	logger *slog.Logger

	cycles   atomic.Int64
	runs     atomic.Int64
	failures atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, jobs []Job, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	return &Poller{
		cfg:    cfg,
		jobs:   jobs,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("ingest poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
		"jobs", len(p.jobs),
	)

	return nil
}

// Stop gracefully shuts down the poller, waiting for running jobs until
// ctx expires.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ingest poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs every job a single time and returns the number that failed.
func (p *Poller) RunOnce(ctx context.Context) int {
	p.ctx = ctx
	return p.runAll()
}

// Stats returns run counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:   p.cycles.Load(),
		Runs:     p.runs.Load(),
		Failures: p.failures.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.runAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runAll()
		}
	}
}

// runAll runs every job concurrently, bounded by Concurrency. A failed job
// never cancels its siblings.
func (p *Poller) runAll() int {
	start := time.Now()
	p.cycles.Add(1)

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	var failed atomic.Int64

	for _, job := range p.jobs {
		if p.ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if p.ctx.Err() != nil {
				return nil
			}
			if err := p.runJob(job); err != nil {
				p.logger.Warn("ingest job failed",
					"job", job.Name(),
					"err", err,
				)
				failed.Add(1)
				p.failures.Add(1)
			}
			p.runs.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("poll cycle complete",
		"jobs", len(p.jobs),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)
	return int(failed.Load())
}

// runJob runs one job under the per-run timeout.
func (p *Poller) runJob(job Job) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()
	return job.Run(ctx)
}
