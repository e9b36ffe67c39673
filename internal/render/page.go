package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/prediction-pulse/internal/aggregate"
	"github.com/rickgao/prediction-pulse/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// Columns shown in the table, in order.
var columns = []struct {
	label string
	key   aggregate.SortKey
}{
	{"Market", aggregate.SortMarketName},
	{"Source", aggregate.SortSource},
	{"Price", aggregate.SortCleanPrice},
	{"Volume", aggregate.SortVolume},
	{"Expires", aggregate.SortExpiration},
	{"24h", aggregate.SortChange},
	{"7d", aggregate.SortChange7d},
}

// State is the sort and filter state a page was rendered with.
type State struct {
	Sort     aggregate.SortKey
	Dir      aggregate.Direction
	Source   string
	Category string
	Limit    *int // row limit from the request, nil when it used the default
}

// LimitParam returns the explicit row limit as a query value, or "".
func (st State) LimitParam() string {
	if st.Limit == nil {
		return ""
	}
	return strconv.Itoa(*st.Limit)
}

// Page is the input to the dashboard template.
type Page struct {
	Title       string
	Version     string
	GeneratedAt time.Time
	State       State
	Headers     []Header
	Sources     []Option
	Categories  []Option
	Groups      []GroupView
	Empty       string
}

// Header is a sortable column header.
type Header struct {
	Label  string
	Href   string
	Active bool
	Arrow  string
}

// Option is a filter choice.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// GroupView is one group section.
type GroupView struct {
	Key         string
	SectionID   string
	Collapsible bool
	Rows        []RowView
}

// RowView is one formatted market row.
type RowView struct {
	MarketID   string
	Name       string
	Source     string
	Price      string
	Volume     string
	Expiration string
	Arrow      string
	Change     string
	Arrow7d    string
	Change7d   string
}

// NewPage formats groups for display.
func (f *Formatter) NewPage(groups []aggregate.Group, sources, categories []string, st State) Page {
	p := Page{
		Title:       "Prediction Market Pulse",
		GeneratedAt: time.Now().UTC(),
		State:       st,
		Headers:     headers(st),
		Sources:     options(sources, st.Source, "All sources"),
		Categories:  options(categories, st.Category, "All categories"),
	}
	for _, g := range groups {
		gv := GroupView{Key: g.Key, SectionID: g.SectionID, Collapsible: g.Collapsible()}
		for _, r := range g.Rows {
			gv.Rows = append(gv.Rows, f.rowView(r))
		}
		p.Groups = append(p.Groups, gv)
	}
	if len(p.Groups) == 0 {
		p.Empty = "No market data available."
	}
	return p
}

func (f *Formatter) rowView(r model.Row) RowView {
	name := r.MarketName
	if name == "" {
		name = r.MarketID
	}
	return RowView{
		MarketID:   r.MarketID,
		Name:       name,
		Source:     r.CleanSource,
		Price:      f.Price(r.CleanPrice),
		Volume:     f.Volume(r.Volume),
		Expiration: f.Date(r.Expiration),
		Arrow:      f.Arrow(r.ChangePct),
		Change:     f.Change(r.ChangePct),
		Arrow7d:    f.Arrow(r.Change7dPct),
		Change7d:   f.Change(r.Change7dPct),
	}
}

func headers(st State) []Header {
	out := make([]Header, len(columns))
	for i, c := range columns {
		key, dir := aggregate.Toggle(st.Sort, st.Dir, c.key)
		h := Header{
			Label:  c.label,
			Href:   Query(State{Sort: key, Dir: dir, Source: st.Source, Category: st.Category, Limit: st.Limit}),
			Active: st.Sort == c.key,
		}
		if h.Active {
			h.Arrow = "▼"
			if st.Dir == aggregate.Asc {
				h.Arrow = "▲"
			}
		}
		out[i] = h
	}
	return out
}

func options(values []string, selected, allLabel string) []Option {
	out := []Option{{Value: aggregate.All, Label: allLabel, Selected: selected == "" || selected == aggregate.All}}
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v, Selected: v == selected})
	}
	return out
}

// Query encodes st as a page query string.
func Query(st State) string {
	v := url.Values{}
	v.Set("sort", string(st.Sort))
	v.Set("dir", string(st.Dir))
	if st.Source != "" && st.Source != aggregate.All {
		v.Set("source", st.Source)
	}
	if st.Category != "" && st.Category != aggregate.All {
		v.Set("category", st.Category)
	}
	if lim := st.LimitParam(); lim != "" {
		v.Set("limit", lim)
	}
	return "?" + v.Encode()
}

// WritePage renders p as HTML.
func WritePage(w io.Writer, p Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
