// Package cleanup prunes old snapshots and finished markets from the
// backend.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// InactiveStatuses are the market statuses removed on every run.
var InactiveStatuses = []string{"RESOLVED", "CANCELLED"}

// Report counts deleted rows per step.
type Report struct {
	OldSnapshots     int
	ExpiredOutcomes  int
	ExpiredSnapshots int
	ExpiredMarkets   int
	InactiveMarkets  int
	LowVolumeMarkets int
}

// Cleaner runs the cleanup steps against a Janitor.
type Cleaner struct {
	janitor   store.Janitor
	threshold float64
	logger    *slog.Logger
}

// New creates a Cleaner. threshold is the volume below which markets are
// removed when low-volume cleanup is requested.
func New(janitor store.Janitor, threshold float64, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{janitor: janitor, threshold: threshold, logger: logger}
}

// Run deletes snapshots older than cutoff, then markets expired as of now
// (outcomes, snapshots, markets, in that order), then resolved and
// cancelled markets, and finally low-volume markets when lowVolume is set.
// A failing step is logged and the remaining independent steps still run;
// the returned error joins every failure.
func (c *Cleaner) Run(ctx context.Context, cutoff, now time.Time, lowVolume bool) (Report, error) {
	var (
		r    Report
		errs []error
	)
	c.logger.Info("cleanup starting", "cutoff", cutoff, "now", now, "low_volume", lowVolume)

	n, err := c.janitor.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete old snapshots: %w", err))
	}
	r.OldSnapshots = n
	c.logger.Info("deleted old snapshots", "rows", n, "cutoff", cutoff)

	if err := c.expired(ctx, now, &r); err != nil {
		errs = append(errs, err)
	}

	n, err = c.janitor.DeleteMarketsByStatus(ctx, InactiveStatuses)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete inactive markets: %w", err))
	}
	r.InactiveMarkets = n
	c.logger.Info("deleted inactive markets", "rows", n)

	if lowVolume {
		n, err = c.janitor.DeleteLowVolumeMarkets(ctx, c.threshold)
		switch {
		case errors.Is(err, store.ErrUnsupported):
			c.logger.Warn("low-volume market cleanup not supported by backend")
		case err != nil:
			errs = append(errs, fmt.Errorf("delete low-volume markets: %w", err))
		default:
			r.LowVolumeMarkets = n
			c.logger.Info("deleted low-volume markets", "rows", n, "threshold", c.threshold)
		}
	}

	c.logger.Info("cleanup done")
	return r, errors.Join(errs...)
}

// expired removes dependents before the markets themselves and stops at
// the first failure.
func (c *Cleaner) expired(ctx context.Context, now time.Time, r *Report) error {
	ids, err := c.janitor.ExpiredMarketIDs(ctx, now)
	if err != nil {
		return fmt.Errorf("list expired markets: %w", err)
	}

	if len(ids) > 0 {
		n, err := c.janitor.DeleteOutcomes(ctx, ids)
		if err != nil {
			return fmt.Errorf("delete expired outcomes: %w", err)
		}
		r.ExpiredOutcomes = n
	}
	c.logger.Info("deleted expired outcomes", "rows", r.ExpiredOutcomes, "markets", len(ids))

	n, err := c.janitor.DeleteExpiredSnapshots(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired snapshots: %w", err)
	}
	r.ExpiredSnapshots = n
	c.logger.Info("deleted expired snapshots", "rows", n)

	n, err = c.janitor.DeleteExpiredMarkets(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired markets: %w", err)
	}
	r.ExpiredMarkets = n
	c.logger.Info("deleted expired markets", "rows", n)
	return nil
}

// ResolveCutoff picks the snapshot cutoff: the explicit value, else env,
// else now minus retention. It fails when none is available.
func ResolveCutoff(arg, env string, retention time.Duration, now time.Time) (time.Time, error) {
	for _, s := range []string{arg, env} {
		if s == "" {
			continue
		}
		t, err := parseCutoff(s)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	if retention > 0 {
		return now.Add(-retention), nil
	}
	return time.Time{}, errors.New("provide cutoff timestamp or set SNAPSHOT_CUTOFF")
}

func parseCutoff(s string) (time.Time, error) {
	t, err := model.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff: %w", err)
	}
	return t.Time, nil
}
