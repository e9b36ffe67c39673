// Package storetest provides an in-memory store for tests.
package storetest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
)

// Memory is a store.Store backed by slices. The zero value is ready to use.
type Memory struct {
	mu sync.Mutex

	LatestRows []model.Snapshot
	Points     []model.PricePoint
	Events     []model.Event
	Markets    []model.Market
	Snapshots  []model.SnapshotRecord
	Prices     []model.PriceRecord
	Outcomes   []model.Outcome

	// Err, when set, is returned by every call.
	Err error

	// Calls records method names in call order.
	Calls []string
}

var _ store.Store = (*Memory)(nil)

func (m *Memory) record(name string) error {
	m.Calls = append(m.Calls, name)
	return m.Err
}

// Latest returns up to limit of LatestRows.
func (m *Memory) Latest(ctx context.Context, limit int) ([]model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Latest"); err != nil {
		return nil, err
	}
	rows := slices.Clone(m.LatestRows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// PricesBefore filters Points and orders them newest first.
func (m *Memory) PricesBefore(ctx context.Context, ids []string, before, after time.Time) ([]model.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("PricesBefore"); err != nil {
		return nil, err
	}
	var out []model.PricePoint
	for _, p := range m.Points {
		if !slices.Contains(ids, p.MarketID) {
			continue
		}
		if !p.Timestamp.Before(before) || p.Timestamp.Before(after) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp.Time) })
	return out, nil
}

// History returns Points for one market, oldest first.
func (m *Memory) History(ctx context.Context, marketID string) ([]model.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("History"); err != nil {
		return nil, err
	}
	var out []model.PricePoint
	for _, p := range m.Points {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp.Time) })
	return out, nil
}

func (m *Memory) UpsertEvents(ctx context.Context, events []model.Event) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpsertEvents"); err != nil {
		return 0, err
	}
	m.Events = append(m.Events, events...)
	return len(events), nil
}

func (m *Memory) UpsertMarkets(ctx context.Context, markets []model.Market) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpsertMarkets"); err != nil {
		return 0, err
	}
	m.Markets = append(m.Markets, markets...)
	return len(markets), nil
}

func (m *Memory) InsertSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertSnapshots"); err != nil {
		return 0, err
	}
	m.Snapshots = append(m.Snapshots, snapshots...)
	return len(snapshots), nil
}

func (m *Memory) InsertPrices(ctx context.Context, prices []model.PriceRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertPrices"); err != nil {
		return 0, err
	}
	m.Prices = append(m.Prices, prices...)
	return len(prices), nil
}

func (m *Memory) InsertOutcomes(ctx context.Context, outcomes []model.Outcome) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertOutcomes"); err != nil {
		return 0, err
	}
	m.Outcomes = append(m.Outcomes, outcomes...)
	return len(outcomes), nil
}

func (m *Memory) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteSnapshotsBefore"); err != nil {
		return 0, err
	}
	before := len(m.Snapshots)
	m.Snapshots = slices.DeleteFunc(m.Snapshots, func(s model.SnapshotRecord) bool {
		return s.Timestamp.Before(cutoff)
	})
	return before - len(m.Snapshots), nil
}

func (m *Memory) ExpiredMarketIDs(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ExpiredMarketIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for _, mk := range m.Markets {
		if mk.Expiration != nil && mk.Expiration.Before(now) {
			ids = append(ids, mk.MarketID)
		}
	}
	return ids, nil
}

func (m *Memory) DeleteOutcomes(ctx context.Context, marketIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteOutcomes"); err != nil {
		return 0, err
	}
	before := len(m.Outcomes)
	m.Outcomes = slices.DeleteFunc(m.Outcomes, func(o model.Outcome) bool {
		return slices.Contains(marketIDs, o.MarketID)
	})
	return before - len(m.Outcomes), nil
}

func (m *Memory) DeleteExpiredSnapshots(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteExpiredSnapshots"); err != nil {
		return 0, err
	}
	before := len(m.Snapshots)
	m.Snapshots = slices.DeleteFunc(m.Snapshots, func(s model.SnapshotRecord) bool {
		return s.Expiration != nil && s.Expiration.Before(now)
	})
	return before - len(m.Snapshots), nil
}

func (m *Memory) DeleteExpiredMarkets(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteExpiredMarkets"); err != nil {
		return 0, err
	}
	before := len(m.Markets)
	m.Markets = slices.DeleteFunc(m.Markets, func(mk model.Market) bool {
		return mk.Expiration != nil && mk.Expiration.Before(now)
	})
	return before - len(m.Markets), nil
}

func (m *Memory) DeleteMarketsByStatus(ctx context.Context, statuses []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteMarketsByStatus"); err != nil {
		return 0, err
	}
	before := len(m.Markets)
	m.Markets = slices.DeleteFunc(m.Markets, func(mk model.Market) bool {
		return slices.Contains(statuses, mk.Status)
	})
	return before - len(m.Markets), nil
}

// DeleteLowVolumeMarkets behaves like the REST backend.
func (m *Memory) DeleteLowVolumeMarkets(ctx context.Context, threshold float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteLowVolumeMarkets"); err != nil {
		return 0, err
	}
	return 0, store.ErrUnsupported
}

// CallLog returns a copy of the recorded calls.
func (m *Memory) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Calls)
}
