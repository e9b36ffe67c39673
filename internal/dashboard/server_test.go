package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/rickgao/prediction-pulse/internal/aggregate"
	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/render"
	"github.com/rickgao/prediction-pulse/internal/store/storetest"
)

func newTestServer(t *testing.T, mem *storetest.Memory, relay http.Handler) *httptest.Server {
	t.Helper()
	s := NewServer(ServerConfig{
		DefaultView: View{Sort: aggregate.SortVolume, Dir: aggregate.Desc, Limit: 100},
		Relay:       relay,
	}, newTestPipeline(mem, 0), render.NewFormatter(language.English), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestServerIndex(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	for _, want := range []string{"Market KX-A", "Market PM-C", "Election", "60.0%"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestServerIndexChartLabel(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	_, body := get(t, ts.URL+"/")
	for _, want := range []string{
		`data-market-id="KX-A" data-label="Market KX-A"`,
		`drawChart(row.dataset.marketId, row.dataset.label)`,
		`"?label=" + encodeURIComponent(label)`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %s", want)
		}
	}
}

func TestServerIndexKeepsLimit(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	_, body := get(t, ts.URL+"/?limit=1")
	if !strings.Contains(body, `<input type="hidden" name="limit" value="1">`) {
		t.Error("filter form does not carry limit")
	}
	if n := strings.Count(body, "limit=1"); n < 7 {
		t.Errorf("limit=1 appears %d times, want every sort header", n)
	}

	_, body = get(t, ts.URL+"/")
	if strings.Contains(body, `name="limit"`) {
		t.Error("default page should not pin a limit")
	}
}

func TestServerIndexEmpty(t *testing.T) {
	ts := newTestServer(t, &storetest.Memory{}, nil)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "No market data available.") {
		t.Error("empty page missing placeholder message")
	}
}

func TestServerMarkets(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	resp, body := get(t, ts.URL+"/api/markets?sort=changePct&dir=desc&source=kalshi")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Shown != 2 {
		t.Errorf("Shown = %d, want 2", res.Shown)
	}
	if len(res.Groups) != 1 || res.Groups[0].Key != "Election" {
		t.Fatalf("Groups = %+v, want only Election", res.Groups)
	}
	if got := res.Groups[0].Rows[0].MarketID; got != "KX-A" {
		t.Errorf("first row = %q, want KX-A", got)
	}
}

func TestServerBadParams(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	tests := []string{
		"/api/markets?sort=bogus",
		"/api/markets?dir=sideways",
		"/api/markets?limit=-1",
		"/api/movers?min_change=abc",
		"/?sort=bogus",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			resp, _ := get(t, ts.URL+path)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestServerMarketsStoreError(t *testing.T) {
	mem := newTestMemory()
	mem.Err = io.ErrUnexpectedEOF
	ts := newTestServer(t, mem, nil)

	resp, body := get(t, ts.URL+"/api/markets")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, "failed to load market data") {
		t.Errorf("body = %q", body)
	}
}

func TestServerHistory(t *testing.T) {
	mem := newTestMemory()
	ts := newTestServer(t, mem, nil)

	resp, body := get(t, ts.URL+"/api/history/KX-A?label=Who+wins")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var cfg render.ChartConfig
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cfg.Data.Labels) != 2 {
		t.Fatalf("labels = %d, want 2", len(cfg.Data.Labels))
	}
	if got := cfg.Data.Datasets[0].Label; got != "Price Trend – Who wins" {
		t.Errorf("dataset label = %q", got)
	}
	// oldest first
	if got := cfg.Data.Datasets[0].Data[0]; got == nil || *got != 40 {
		t.Errorf("first point = %v, want 40", got)
	}
}

func TestServerMovers(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	resp, body := get(t, ts.URL+"/api/movers?limit=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var rows []model.Row
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].MarketID != "KX-A" {
		t.Errorf("movers = %+v, want [KX-A]", rows)
	}
}

func TestServerHealth(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	resp, body := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("body = %q", body)
	}
}

func TestServerRelayMount(t *testing.T) {
	relay := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets":[]}`))
	})

	ts := newTestServer(t, newTestMemory(), relay)
	resp, body := get(t, ts.URL+"/kalshi")
	if resp.StatusCode != http.StatusOK || body != `{"markets":[]}` {
		t.Errorf("relay = %d %q", resp.StatusCode, body)
	}

	plain := newTestServer(t, newTestMemory(), nil)
	resp, _ = get(t, plain.URL+"/kalshi")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status without relay = %d, want 404", resp.StatusCode)
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	ts := newTestServer(t, newTestMemory(), nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}
