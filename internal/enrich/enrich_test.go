package enrich

import (
	"math"
	"testing"

	"github.com/rickgao/prediction-pulse/internal/model"
)

func f(v float64) *float64 { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want *float64
	}{
		{"nil", nil, nil},
		{"zero", f(0), f(0)},
		{"one", f(1), f(1)},
		{"mid", f(0.42), f(0.42)},
		{"negative", f(-0.01), nil},
		{"above one", f(1.01), nil},
		{"cents", f(53), nil},
		{"nan", f(math.NaN()), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanPrice(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("CleanPrice() = %v, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("CleanPrice() = %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestCleanPriceCopies(t *testing.T) {
	p := 0.5
	got := CleanPrice(&p)
	p = 0.9
	if *got != 0.5 {
		t.Errorf("CleanPrice aliased input: got %v", *got)
	}
}

func TestCleanSource(t *testing.T) {
	tests := map[string]string{
		"polymarket":      "polymarket",
		"polymarket_clob": "polymarket",
		"polymarket-v2":   "polymarket",
		"kalshi":          "kalshi",
		"":                "",
	}
	for in, want := range tests {
		if got := CleanSource(in); got != want {
			t.Errorf("CleanSource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreviousPricesFirstWins(t *testing.T) {
	points := []model.PricePoint{
		{MarketID: "A", Price: f(0.6)},
		{MarketID: "B", Price: nil},
		{MarketID: "A", Price: f(0.1)},
		{MarketID: "B", Price: f(0.3)},
	}

	prev := PreviousPrices(points)
	if len(prev) != 2 {
		t.Fatalf("len = %d, want 2", len(prev))
	}
	if *prev["A"] != 0.6 {
		t.Errorf("prev[A] = %v, want 0.6", *prev["A"])
	}
	if p, ok := prev["B"]; !ok || p != nil {
		t.Errorf("prev[B] = %v, %v; want nil, true", p, ok)
	}
}

func TestChangePct(t *testing.T) {
	tests := []struct {
		name    string
		cur     *float64
		prev    *float64
		mode    ChangeMode
		want    float64
		wantNil bool
	}{
		{name: "points up", cur: f(0.55), prev: f(0.50), mode: ChangePoints, want: 5},
		{name: "points down", cur: f(0.40), prev: f(0.50), mode: ChangePoints, want: -10},
		{name: "relative", cur: f(0.55), prev: f(0.50), mode: ChangeRelative, want: 10},
		{name: "relative zero base", cur: f(0.1), prev: f(0), mode: ChangeRelative, wantNil: true},
		{name: "points zero base", cur: f(0.1), prev: f(0), mode: ChangePoints, want: 10},
		{name: "nil current", cur: nil, prev: f(0.5), mode: ChangePoints, wantNil: true},
		{name: "nil previous", cur: f(0.5), prev: nil, mode: ChangeRelative, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangePct(tt.cur, tt.prev, tt.mode)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ChangePct() = %v, want nil", *got)
				}
				return
			}
			if got == nil || !approx(*got, tt.want) {
				t.Errorf("ChangePct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseChangeMode(t *testing.T) {
	if m, err := ParseChangeMode(""); err != nil || m != ChangePoints {
		t.Errorf("ParseChangeMode(\"\") = %q, %v", m, err)
	}
	if m, err := ParseChangeMode("relative"); err != nil || m != ChangeRelative {
		t.Errorf("ParseChangeMode(relative) = %q, %v", m, err)
	}
	if _, err := ParseChangeMode("ratio"); err == nil {
		t.Error("ParseChangeMode(ratio) expected error")
	}
}

func TestEnrich(t *testing.T) {
	snaps := []model.Snapshot{
		{MarketID: "A", Source: "polymarket_clob", Price: f(0.6), Volume: f(1000)},
		{MarketID: "B", Source: "kalshi", Price: f(42), Volume: f(50)},
		{MarketID: "C", Source: "kalshi", Price: f(0.3), Volume: f(10)},
	}
	prev24 := map[string]*float64{"A": f(0.5), "B": f(0.4), "C": f(7)}
	prev7 := map[string]*float64{"A": f(0.2)}

	rows := Enricher{Mode: ChangePoints}.Enrich(snaps, prev24, prev7)
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}

	a := rows[0]
	if a.CleanSource != "polymarket" {
		t.Errorf("A.CleanSource = %q", a.CleanSource)
	}
	if a.ChangePct == nil || !approx(*a.ChangePct, 10) {
		t.Errorf("A.ChangePct = %v, want 10", a.ChangePct)
	}
	if a.Change7dPct == nil || !approx(*a.Change7dPct, 40) {
		t.Errorf("A.Change7dPct = %v, want 40", a.Change7dPct)
	}
	if a.DollarVolume == nil || !approx(*a.DollarVolume, 100) {
		t.Errorf("A.DollarVolume = %v, want 100", a.DollarVolume)
	}

	b := rows[1]
	if b.CleanPrice != nil || b.ChangePct != nil {
		t.Errorf("B: out-of-range price should leave CleanPrice and ChangePct nil, got %v, %v", b.CleanPrice, b.ChangePct)
	}
	if b.Price == nil || *b.Price != 42 {
		t.Errorf("B.Price should keep the raw value, got %v", b.Price)
	}

	c := rows[2]
	if c.Price24h != nil || c.ChangePct != nil {
		t.Errorf("C: out-of-range history should be treated as missing, got %v, %v", c.Price24h, c.ChangePct)
	}
	if c.Change7dPct != nil {
		t.Errorf("C.Change7dPct = %v, want nil", *c.Change7dPct)
	}
}

func TestEnrichNilMaps(t *testing.T) {
	rows := Enricher{}.Enrich([]model.Snapshot{{MarketID: "A", Price: f(0.5)}}, nil, nil)
	if rows[0].ChangePct != nil || rows[0].Change7dPct != nil {
		t.Errorf("changes should be nil without history")
	}
	if rows[0].CleanPrice == nil || *rows[0].CleanPrice != 0.5 {
		t.Errorf("CleanPrice = %v, want 0.5", rows[0].CleanPrice)
	}
}
