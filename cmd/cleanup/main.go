// cleanup prunes old snapshots, expired markets and finished markets.
//
// Usage: go run ./cmd/cleanup [-config pulse.yaml] [-low-volume] [cutoff]
//
// The snapshot cutoff comes from the argument, then SNAPSHOT_CUTOFF, then
// cleanup.snapshot_retention. Low-volume cleanup is also enabled by
// DELETE_LOW_VOLUME=1.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/prediction-pulse/internal/backend"
	"github.com/rickgao/prediction-pulse/internal/cleanup"
	"github.com/rickgao/prediction-pulse/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	lowVolume := flag.Bool("low-volume", false, "also delete markets below cleanup.low_volume_threshold")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	now := time.Now().UTC()
	cutoff, err := cleanup.ResolveCutoff(flag.Arg(0), os.Getenv("SNAPSHOT_CUTOFF"), cfg.Cleanup.SnapshotRetention, now)
	if err != nil {
		logger.Error("no snapshot cutoff", "error", err)
		os.Exit(1)
	}
	if os.Getenv("DELETE_LOW_VOLUME") == "1" {
		*lowVolume = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, release, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open backend", "error", err)
		os.Exit(1)
	}
	defer release()

	c := cleanup.New(st, cfg.Cleanup.LowVolumeThreshold, logger)
	report, err := c.Run(ctx, cutoff, now, *lowVolume)
	logger.Info("cleanup summary",
		"old_snapshots", report.OldSnapshots,
		"expired_outcomes", report.ExpiredOutcomes,
		"expired_snapshots", report.ExpiredSnapshots,
		"expired_markets", report.ExpiredMarkets,
		"inactive_markets", report.InactiveMarkets,
		"low_volume_markets", report.LowVolumeMarkets,
	)
	if err != nil {
		logger.Error("cleanup finished with errors", "error", err)
		release()
		os.Exit(1)
	}
}
