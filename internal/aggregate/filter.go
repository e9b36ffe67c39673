package aggregate

import (
	"math"
	"slices"
	"sort"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// All disables a filter.
const All = "all"

// Filter narrows rows by clean source and category.
type Filter struct {
	Source   string
	Category string
}

// Apply returns the rows matching f.
func (f Filter) Apply(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if f.Source != "" && f.Source != All && r.CleanSource != f.Source {
			continue
		}
		if f.Category != "" && f.Category != All && !slices.Contains(r.Categories(), f.Category) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sources lists distinct clean sources in first-appearance order.
func Sources(rows []model.Row) []string {
	return distinct(rows, func(r model.Row) []string { return []string{r.CleanSource} })
}

// Categories lists distinct categories in first-appearance order.
func Categories(rows []model.Row) []string {
	return distinct(rows, model.Row.Categories)
}

func distinct(rows []model.Row, values func(model.Row) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		for _, v := range values(r) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// TopMovers returns up to limit rows with a 24-hour change, largest absolute change first.
func TopMovers(rows []model.Row, limit int) []model.Row {
	var movers []model.Row
	for _, r := range rows {
		if r.ChangePct != nil {
			movers = append(movers, r)
		}
	}
	sort.SliceStable(movers, func(i, j int) bool {
		return math.Abs(*movers[i].ChangePct) > math.Abs(*movers[j].ChangePct)
	})
	return Limit(movers, limit)
}

// BigMovers returns rows whose absolute 24-hour change is at least minChange
// and whose volume is at least minVolume, largest change first.
func BigMovers(rows []model.Row, minChange, minVolume float64) []model.Row {
	var out []model.Row
	for _, r := range TopMovers(rows, 0) {
		if math.Abs(*r.ChangePct) >= minChange && r.VolumeOrZero() >= minVolume {
			out = append(out, r)
		}
	}
	return out
}
