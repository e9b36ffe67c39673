package api

import (
	"testing"
	"time"
)

func TestParseDollars(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"0.52", "0.52", true},
		{"0.5250", "0.525", true},
		{"  0.52  ", "0.52", true},
		{"", "0", false},
		{"invalid", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDollars(tt.input)
			if ok != tt.wantOK || got.String() != tt.want {
				t.Errorf("ParseDollars(%q) = %s, %v, want %s, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMarketPrice(t *testing.T) {
	tests := []struct {
		name   string
		market APIMarket
		want   string
		wantOK bool
	}{
		{
			name:   "midpoint of dollar quotes",
			market: APIMarket{YesBidDollars: "0.52", YesAskDollars: "0.5450"},
			want:   "0.5325",
			wantOK: true,
		},
		{
			name:   "midpoint rounds to four places",
			market: APIMarket{YesBidDollars: "0.52501", YesAskDollars: "0.52504"},
			want:   "0.525",
			wantOK: true,
		},
		{
			name:   "cent fallback",
			market: APIMarket{YesBid: 40, YesAsk: 44},
			want:   "0.42",
			wantOK: true,
		},
		{
			name:   "last price when one side missing",
			market: APIMarket{YesBidDollars: "0.30", LastPriceDollars: "0.33"},
			want:   "0.33",
			wantOK: true,
		},
		{
			name:   "no price",
			market: APIMarket{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.market.Price()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("Price() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCandidateName(t *testing.T) {
	tests := map[string]string{
		"KXPRES-28-DJT": "DJT",
		"SINGLE":        "SINGLE",
		"":              "",
		"ENDS-":         "",
	}
	for in, want := range tests {
		if got := CandidateName(in); got != want {
			t.Errorf("CandidateName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarketStatus(t *testing.T) {
	tests := map[string]string{
		"":          MarketTrading,
		"open":      MarketTrading,
		"active":    MarketTrading,
		"closed":    MarketClosed,
		"settled":   MarketResolved,
		"finalized": MarketResolved,
		"paused":    "PAUSED",
	}
	for in, want := range tests {
		if got := MarketStatus(in); got != want {
			t.Errorf("MarketStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConversions(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := &APIEvent{EventTicker: "KXPRES-28", Title: "2028 Presidential Election"}
	m := &APIMarket{
		Ticker:        "KXPRES-28-DJT",
		EventTicker:   "KXPRES-28",
		Status:        "active",
		YesBidDollars: "0.40",
		YesAskDollars: "0.42",
		NoBidDollars:  "0.58",
		Volume:        1234,
		OpenInterest:  900,
		CloseTime:     "2028-11-07T00:00:00Z",
	}

	if got := ev.ToEvent(); got.EventID != "KXPRES-28" || got.Title != ev.Title || got.Source != "kalshi" {
		t.Errorf("ToEvent() = %+v", got)
	}

	mk := m.ToMarket(ev)
	if mk.MarketName != "DJT" || mk.EventName != ev.Title || mk.Status != MarketTrading {
		t.Errorf("ToMarket() = %+v", mk)
	}
	if mk.Expiration == nil || mk.Expiration.Year() != 2028 {
		t.Errorf("Expiration = %v, want 2028", mk.Expiration)
	}
	if len(mk.Tags) != 1 || mk.Tags[0] != "kalshi" {
		t.Errorf("Tags = %v", mk.Tags)
	}
	if got := m.ToMarket(nil).EventName; got != "" {
		t.Errorf("EventName without event = %q, want market title fallback", got)
	}

	snap := m.ToSnapshot(ts)
	if snap.Price == nil || *snap.Price != 0.41 {
		t.Errorf("Price = %v, want 0.41", snap.Price)
	}
	if snap.DollarVolume == nil || *snap.DollarVolume != 505.94 {
		t.Errorf("DollarVolume = %v, want 505.94", snap.DollarVolume)
	}
	if snap.NoBid == nil || *snap.NoBid != 0.58 {
		t.Errorf("NoBid = %v, want 0.58", snap.NoBid)
	}
	if !snap.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", snap.Timestamp, ts)
	}

	outs := m.ToOutcomes(ts)
	if len(outs) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outs))
	}
	if outs[0].OutcomeName != "Yes" || *outs[0].Price != 0.41 {
		t.Errorf("yes outcome = %+v", outs[0])
	}
	if outs[1].OutcomeName != "No" || *outs[1].Price != 0.59 {
		t.Errorf("no outcome = %+v", outs[1])
	}

	if got := (&APIMarket{Ticker: "X"}).ToOutcomes(ts); got != nil {
		t.Errorf("outcomes without price = %+v, want nil", got)
	}
}
