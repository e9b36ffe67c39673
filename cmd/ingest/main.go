// ingest polls Kalshi and Polymarket and writes events, markets, snapshots,
// prices and outcomes to the backend.
//
// Usage: go run ./cmd/ingest [-config pulse.yaml] [-once] [-sources kalshi,polymarket]
//
// With -market KX-A,KX-B it refreshes only those Kalshi tickers once and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/prediction-pulse/internal/api"
	"github.com/rickgao/prediction-pulse/internal/auth"
	"github.com/rickgao/prediction-pulse/internal/backend"
	"github.com/rickgao/prediction-pulse/internal/config"
	"github.com/rickgao/prediction-pulse/internal/ingest"
	"github.com/rickgao/prediction-pulse/internal/poller"
	"github.com/rickgao/prediction-pulse/internal/polymarket"
	"github.com/rickgao/prediction-pulse/internal/store"
	"github.com/rickgao/prediction-pulse/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	once := flag.Bool("once", false, "run every source once and exit")
	sources := flag.String("sources", "", "comma-separated sources (overrides ingest.sources)")
	markets := flag.String("market", "", "comma-separated Kalshi tickers to refresh once, then exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *sources != "" {
		cfg.Ingest.Sources = splitList(*sources)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting ingest",
		version.Attr(),
		"sources", cfg.Ingest.Sources,
		"once", *once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, release, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open backend", "error", err)
		os.Exit(1)
	}
	err = run(ctx, cfg, st, splitList(*markets), *once, logger)
	release()
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

// run executes the ingest mode selected by the flags: a one-off refresh of
// tickers, a single pass over every source, or the polling loop until ctx
// is cancelled.
func run(ctx context.Context, cfg *config.Config, st store.Store, tickers []string, once bool, logger *slog.Logger) error {
	if len(tickers) > 0 {
		client, err := kalshiClient(ctx, cfg.Kalshi, logger)
		if err != nil {
			return err
		}
		job := wrap(ingest.NewKalshiRefreshJob(client, st, tickers, logger), logger)
		if err := job.Run(ctx); err != nil {
			return fmt.Errorf("refresh markets: %w", err)
		}
		return nil
	}

	jobs, err := buildJobs(ctx, cfg, st, logger)
	if err != nil {
		return fmt.Errorf("set up sources: %w", err)
	}

	p := poller.New(poller.Config{
		Interval:    cfg.Ingest.Interval,
		Concurrency: cfg.Ingest.Concurrency,
	}, jobs, logger.With("component", "poller"))

	if once {
		if failed := p.RunOnce(ctx); failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
		}
		return nil
	}

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop timed out", "error", err)
	}

	stats := p.Stats()
	logger.Info("ingest stopped", "cycles", stats.Cycles, "runs", stats.Runs, "failures", stats.Failures)
	return nil
}

func buildJobs(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) ([]poller.Job, error) {
	var jobs []poller.Job
	for _, name := range cfg.Ingest.Sources {
		switch strings.TrimSpace(name) {
		case "kalshi":
			client, err := kalshiClient(ctx, cfg.Kalshi, logger)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, wrap(ingest.NewKalshiJob(client, st, logger), logger))

		case "polymarket":
			pm := cfg.Polymarket
			client := polymarket.NewClient(pm.GammaURL, pm.CLOBURL,
				polymarket.WithLogger(logger.With("component", "polymarket")),
				polymarket.WithTimeout(pm.Timeout),
				polymarket.WithRateLimit(pm.RequestsPerSecond, max(1, 2*int(pm.RequestsPerSecond))),
				polymarket.WithPaging(pm.PageSize, pm.MaxPages),
				polymarket.WithRateLimitWait(pm.RateLimitWait),
			)
			job := ingest.NewPolymarketJob(ingest.PolymarketConfig{
				TopN:        pm.TopN,
				Concurrency: pm.Concurrency,
			}, client, st, logger)
			jobs = append(jobs, wrap(job, logger))
		}
	}
	return jobs, nil
}

func kalshiClient(ctx context.Context, k config.KalshiConfig, logger *slog.Logger) (*api.Client, error) {
	opts := []api.ClientOption{
		api.WithLogger(logger.With("component", "kalshi")),
		api.WithTimeout(k.Timeout),
		api.WithRetries(k.MaxRetries, time.Second),
	}

	creds, err := auth.LoadOptional(k.APIKey, k.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load kalshi credentials: %w", err)
	}
	if creds != nil {
		opts = append(opts, api.WithSigner(creds))
	}

	client := api.NewClient(k.RestURL, "", opts...)

	status, err := client.GetExchangeStatus(ctx)
	if err != nil {
		logger.Warn("failed to get exchange status", "error", err)
	} else {
		logger.Info("exchange status",
			"exchange_active", status.ExchangeActive,
			"trading_active", status.TradingActive,
		)
	}
	return client, nil
}

type runner interface {
	Name() string
	Run(ctx context.Context) (ingest.Result, error)
}

// wrap adapts an ingest job to the poller and logs its result.
func wrap(j runner, logger *slog.Logger) poller.Job {
	return poller.JobFunc{
		JobName: j.Name(),
		Fn: func(ctx context.Context) error {
			res, err := j.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("ingest run complete",
				"job", res.Job,
				"run_id", res.RunID,
				"events", res.Events,
				"markets", res.Markets,
				"snapshots", res.Snapshots,
				"outcomes", res.Outcomes,
				"skipped", res.Skipped,
				"duration", res.Duration,
			)
			return nil
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
