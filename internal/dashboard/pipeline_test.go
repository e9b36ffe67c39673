package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/prediction-pulse/internal/aggregate"
	"github.com/rickgao/prediction-pulse/internal/enrich"
	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
	"github.com/rickgao/prediction-pulse/internal/store/storetest"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func snap(id, source, event string, price, volume float64) model.Snapshot {
	return model.Snapshot{
		MarketID:   id,
		Source:     source,
		Price:      model.Float(price),
		Volume:     model.Float(volume),
		Timestamp:  model.NewTime(testNow),
		MarketName: "Market " + id,
		EventName:  event,
	}
}

func point(id string, price float64, age time.Duration) model.PricePoint {
	return model.PricePoint{MarketID: id, Price: model.Float(price), Timestamp: model.NewTime(testNow.Add(-age))}
}

func newTestMemory() *storetest.Memory {
	return &storetest.Memory{
		LatestRows: []model.Snapshot{
			snap("KX-A", "kalshi", "Election", 0.60, 500),
			snap("KX-B", "kalshi", "Election", 0.30, 300),
			snap("PM-C", "polymarket_clob", "Rates", 0.10, 2000),
			snap("KX-A", "kalshi", "Election", 0.55, 100), // lower-volume duplicate
			snap("KX-D", "kalshi", "Weather", 0.50, 0),    // no volume
		},
		Points: []model.PricePoint{
			point("KX-A", 0.50, 25*time.Hour),
			point("KX-A", 0.40, 30*time.Hour),
			point("PM-C", 0.20, 8*24*time.Hour),
			point("KX-B", 0.35, 2*time.Hour), // too recent for either window
		},
	}
}

func newTestPipeline(mem *storetest.Memory, ttl time.Duration) *Pipeline {
	p := NewPipeline(PipelineConfig{SnapshotLimit: 1000, ChangeMode: enrich.ChangePoints, CacheTTL: ttl}, mem, nil)
	p.now = func() time.Time { return testNow }
	return p
}

func TestPipelineLoad(t *testing.T) {
	p := newTestPipeline(newTestMemory(), 0)

	res, err := p.Load(context.Background(), View{Sort: aggregate.SortVolume, Dir: aggregate.Desc})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(res.Groups))
	}
	if res.Groups[0].Key != "Rates" {
		t.Errorf("Groups[0].Key = %q, want Rates", res.Groups[0].Key)
	}

	election := res.Groups[1]
	if len(election.Rows) != 2 {
		t.Fatalf("Election rows = %d, want 2", len(election.Rows))
	}
	a := election.Rows[0]
	if a.MarketID != "KX-A" || *a.Volume != 500 {
		t.Errorf("first Election row = %s vol %v, want KX-A vol 500", a.MarketID, *a.Volume)
	}
	if a.ChangePct == nil || *a.ChangePct < 9.99 || *a.ChangePct > 10.01 {
		t.Errorf("KX-A ChangePct = %v, want 10", a.ChangePct)
	}
	if b := election.Rows[1]; b.ChangePct != nil {
		t.Errorf("KX-B ChangePct = %v, want nil", *b.ChangePct)
	}

	c := res.Groups[0].Rows[0]
	if c.CleanSource != "polymarket" {
		t.Errorf("PM-C CleanSource = %q, want polymarket", c.CleanSource)
	}
	if c.Change7dPct == nil || *c.Change7dPct > -9.99 || *c.Change7dPct < -10.01 {
		t.Errorf("PM-C Change7dPct = %v, want -10", c.Change7dPct)
	}
}

func TestPipelineLoadFilterAndLimit(t *testing.T) {
	p := newTestPipeline(newTestMemory(), 0)

	res, err := p.Load(context.Background(), View{
		Sort:   aggregate.SortVolume,
		Dir:    aggregate.Asc,
		Filter: aggregate.Filter{Source: "kalshi"},
		Limit:  1,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Shown != 1 {
		t.Fatalf("Shown = %d, want 1", res.Shown)
	}
	if got := res.Groups[0].Rows[0].MarketID; got != "KX-B" {
		t.Errorf("row = %q, want KX-B", got)
	}
	if len(res.Sources) != 2 {
		t.Errorf("Sources = %v, want both sources listed", res.Sources)
	}
}

func TestPipelineNoRows(t *testing.T) {
	mem := &storetest.Memory{LatestRows: []model.Snapshot{snap("X", "kalshi", "", 0.5, 0)}}
	p := newTestPipeline(mem, 0)

	_, err := p.Load(context.Background(), View{Sort: aggregate.SortVolume, Dir: aggregate.Desc})
	if !errors.Is(err, store.ErrNoRows) {
		t.Errorf("Load() error = %v, want ErrNoRows", err)
	}
}

func TestPipelineCache(t *testing.T) {
	mem := newTestMemory()
	p := newTestPipeline(mem, time.Minute)

	for range 3 {
		if _, _, err := p.Rows(context.Background()); err != nil {
			t.Fatalf("Rows() error = %v", err)
		}
	}

	latest := 0
	for _, c := range mem.CallLog() {
		if c == "Latest" {
			latest++
		}
	}
	if latest != 1 {
		t.Errorf("Latest called %d times, want 1", latest)
	}

	if _, _, err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	latest = 0
	for _, c := range mem.CallLog() {
		if c == "Latest" {
			latest++
		}
	}
	if latest != 2 {
		t.Errorf("Latest called %d times after Refresh, want 2", latest)
	}
}

func TestPipelineStoreError(t *testing.T) {
	mem := newTestMemory()
	mem.Err = errors.New("boom")
	p := newTestPipeline(mem, 0)

	if _, err := p.Load(context.Background(), View{}); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestPipelineMovers(t *testing.T) {
	p := newTestPipeline(newTestMemory(), 0)

	rows, err := p.Movers(context.Background(), 5, 0, 0)
	if err != nil {
		t.Fatalf("Movers() error = %v", err)
	}
	if len(rows) == 0 || rows[0].MarketID != "KX-A" {
		t.Errorf("Movers()[0] = %v, want KX-A first", rows)
	}

	rows, err = p.Movers(context.Background(), 5, 5, 1000)
	if err != nil {
		t.Fatalf("Movers() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("big movers = %d, want 0 (KX-A volume below 1000)", len(rows))
	}
}
