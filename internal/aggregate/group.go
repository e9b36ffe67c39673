package aggregate

import (
	"sort"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// Group is the set of rows that share a group key.
type Group struct {
	Key         string      `json:"key"`
	SectionID   string      `json:"section_id"`
	Rows        []model.Row `json:"rows"`
	TotalVolume float64     `json:"total_volume"`
}

// Collapsible reports whether the group gets its own header row.
func (g Group) Collapsible() bool {
	return len(g.Rows) > 1
}

// GroupByEvent buckets rows by model.Row.GroupKey, keeping row order inside
// each group. Groups are ordered by total volume descending; equal totals
// keep first-appearance order.
func GroupByEvent(rows []model.Row) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range rows {
		key := r.GroupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, SectionID: model.SectionID(key)})
		}
		groups[i].Rows = append(groups[i].Rows, r)
		groups[i].TotalVolume += r.VolumeOrZero()
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalVolume > groups[j].TotalVolume
	})
	return groups
}
