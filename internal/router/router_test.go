package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/rickgao/prediction-pulse/internal/connection"
)

func startRouter(t *testing.T, cfg RouterConfig) (Router, chan connection.RawMessage) {
	t.Helper()
	input := make(chan connection.RawMessage, 100)
	r := NewRouter(cfg, input, slog.Default())
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(ctx)
	})
	return r, input
}

func receive(t *testing.T, r Router) TickerMsg {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if msg, ok := r.Tickers().TryReceive(); ok {
			return msg
		}
		select {
		case <-deadline:
			t.Fatal("expected ticker message")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestDefaultRouterConfig(t *testing.T) {
	if cfg := DefaultRouterConfig(); cfg.TickerBufferSize != 1000 {
		t.Errorf("TickerBufferSize = %d, want 1000", cfg.TickerBufferSize)
	}
}

func TestRouter_StartStop(t *testing.T) {
	input := make(chan connection.RawMessage, 10)
	r := NewRouter(DefaultRouterConfig(), input, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	if _, ok := r.Tickers().Receive(); ok {
		t.Error("Receive() ok = true after Stop")
	}
}

func TestRouter_ParseTicker(t *testing.T) {
	r, input := startRouter(t, DefaultRouterConfig())

	received := time.Now()
	input <- connection.RawMessage{
		Data: mustJSON(t, map[string]any{
			"type": "ticker",
			"sid":  4,
			"msg": map[string]any{
				"market_ticker":        "KXFED-26MAR-T4.25",
				"price_dollars":        "0.60",
				"yes_bid_dollars":      "0.59",
				"yes_ask_dollars":      "0.61",
				"volume":               1000,
				"open_interest":        500,
				"dollar_volume":        50000,
				"dollar_open_interest": 25000,
				"ts":                   1705328400,
			},
		}),
		ReceivedAt: received,
	}

	msg := receive(t, r)

	if msg.Channel != "ticker" {
		t.Errorf("Channel = %s, want ticker", msg.Channel)
	}
	if msg.Ticker != "KXFED-26MAR-T4.25" {
		t.Errorf("Ticker = %s, want KXFED-26MAR-T4.25", msg.Ticker)
	}
	if msg.Price == nil || *msg.Price != 0.6 {
		t.Errorf("Price = %v, want 0.6", msg.Price)
	}
	if msg.YesBid == nil || *msg.YesBid != 0.59 {
		t.Errorf("YesBid = %v, want 0.59", msg.YesBid)
	}
	if msg.YesAsk == nil || *msg.YesAsk != 0.61 {
		t.Errorf("YesAsk = %v, want 0.61", msg.YesAsk)
	}
	if msg.Volume == nil || *msg.Volume != 1000 {
		t.Errorf("Volume = %v, want 1000", msg.Volume)
	}
	if msg.OpenInterest == nil || *msg.OpenInterest != 500 {
		t.Errorf("OpenInterest = %v, want 500", msg.OpenInterest)
	}
	if msg.VolumeDelta != nil {
		t.Errorf("VolumeDelta = %v, want nil", *msg.VolumeDelta)
	}
	if !msg.ExchangeTime.Equal(time.Unix(1705328400, 0)) {
		t.Errorf("ExchangeTime = %v", msg.ExchangeTime)
	}
	if !msg.ReceivedAt.Equal(received) {
		t.Errorf("ReceivedAt = %v, want %v", msg.ReceivedAt, received)
	}
}

func TestRouter_ParseTickerV2(t *testing.T) {
	r, input := startRouter(t, DefaultRouterConfig())

	input <- connection.RawMessage{
		Data:       []byte(`{"type":"ticker_v2","sid":9,"seq":3,"msg":{"market_ticker":"KX-B","price":48,"volume_delta":12,"open_interest_delta":-2,"ts":1705328500}}`),
		ReceivedAt: time.Now(),
	}

	msg := receive(t, r)

	if msg.Channel != "ticker_v2" || msg.Seq != 3 || msg.SID != 9 {
		t.Errorf("header = %s/%d/%d, want ticker_v2/9/3", msg.Channel, msg.SID, msg.Seq)
	}
	if msg.Price == nil || *msg.Price != 0.48 {
		t.Errorf("Price = %v, want 0.48 from cents", msg.Price)
	}
	if msg.YesBid != nil || msg.YesAsk != nil {
		t.Error("absent quotes should stay nil")
	}
	if msg.VolumeDelta == nil || *msg.VolumeDelta != 12 {
		t.Errorf("VolumeDelta = %v, want 12", msg.VolumeDelta)
	}
	if msg.OpenInterestDelta == nil || *msg.OpenInterestDelta != -2 {
		t.Errorf("OpenInterestDelta = %v, want -2", msg.OpenInterestDelta)
	}
}

func TestParseTicker_SubpennyAndFallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *float64
	}{
		{
			name: "subpenny dollars",
			data: `{"type":"ticker","msg":{"market_ticker":"A","price_dollars":"0.5250"}}`,
			want: ptr(0.525),
		},
		{
			name: "dollars win over cents",
			data: `{"type":"ticker","msg":{"market_ticker":"A","price_dollars":"0.31","price":99}}`,
			want: ptr(0.31),
		},
		{
			name: "bad dollars fall back to cents",
			data: `{"type":"ticker","msg":{"market_ticker":"A","price_dollars":"n/a","price":7}}`,
			want: ptr(0.07),
		},
		{
			name: "no price",
			data: `{"type":"ticker","msg":{"market_ticker":"A"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseTicker([]byte(tt.data), time.Time{})
			if err != nil {
				t.Fatalf("ParseTicker() error = %v", err)
			}
			switch {
			case tt.want == nil && msg.Price != nil:
				t.Errorf("Price = %v, want nil", *msg.Price)
			case tt.want != nil && (msg.Price == nil || *msg.Price != *tt.want):
				t.Errorf("Price = %v, want %v", msg.Price, *tt.want)
			}
		})
	}
}

func TestParseTicker_MissingTicker(t *testing.T) {
	if _, err := ParseTicker([]byte(`{"type":"ticker_v2","msg":{}}`), time.Time{}); err == nil {
		t.Error("ParseTicker() error = nil, want missing ticker error")
	}
}

func TestRouter_BufferGrowth(t *testing.T) {
	r, input := startRouter(t, RouterConfig{TickerBufferSize: 10})

	for i := 0; i < 20; i++ {
		input <- connection.RawMessage{
			Data: mustJSON(t, map[string]any{
				"type": "ticker_v2",
				"sid":  1,
				"seq":  i,
				"msg":  map[string]any{"market_ticker": "GROW", "price": 50},
			}),
		}
	}

	deadline := time.Now().Add(time.Second)
	for r.Stats().MessagesRouted < 20 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stats := r.Stats().TickerBuffer
	if stats.Count != 20 {
		t.Errorf("buffer count = %d, want 20", stats.Count)
	}
	if stats.ResizeCount == 0 {
		t.Error("expected buffer to grow")
	}

	batch := r.Tickers().ReceiveBatch(0)
	for i, msg := range batch {
		if msg.Seq != int64(i) {
			t.Fatalf("batch[%d].Seq = %d, want %d", i, msg.Seq, i)
		}
	}
}

func TestRouter_Stats(t *testing.T) {
	r, input := startRouter(t, DefaultRouterConfig())

	if stats := r.Stats(); stats.MessagesReceived != 0 || stats.MessagesRouted != 0 {
		t.Error("initial stats should be zero")
	}

	inputs := []string{
		`{"type":"ticker_v2","sid":1,"msg":{"market_ticker":"A","price":10}}`,
		`{"type":"ticker","sid":1,"msg":{"market_ticker":"B","price":20}}`,
		`{"type":"trade","sid":2,"msg":{"market_ticker":"C"}}`,
		`{"type":"ticker_v2","sid":1,"msg":{}}`,
		`{not json`,
	}
	for _, data := range inputs {
		input <- connection.RawMessage{Data: []byte(data)}
	}

	deadline := time.Now().Add(time.Second)
	for r.Stats().MessagesReceived < int64(len(inputs)) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stats := r.Stats()
	if stats.MessagesReceived != 5 {
		t.Errorf("MessagesReceived = %d, want 5", stats.MessagesReceived)
	}
	if stats.MessagesRouted != 2 {
		t.Errorf("MessagesRouted = %d, want 2", stats.MessagesRouted)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if stats.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", stats.ParseErrors)
	}
}

func TestRouter_InputClosed(t *testing.T) {
	input := make(chan connection.RawMessage, 1)
	r := NewRouter(DefaultRouterConfig(), input, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	input <- connection.RawMessage{Data: []byte(`{"type":"ticker","msg":{"market_ticker":"A"}}`)}
	close(input)

	if _, ok := r.Tickers().Receive(); !ok {
		t.Fatal("expected buffered message before close")
	}
	if _, ok := r.Tickers().Receive(); ok {
		t.Error("Receive() ok = true after input closed")
	}
}

func ptr(v float64) *float64 { return &v }
