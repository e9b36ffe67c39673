package aggregate

import "github.com/rickgao/prediction-pulse/internal/model"

// FilterVolume keeps snapshots with a volume above zero. A missing volume counts as zero.
func FilterVolume(snaps []model.Snapshot) []model.Snapshot {
	out := make([]model.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.VolumeOrZero() > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Dedupe keeps one snapshot per market id: the one with the highest volume,
// the earliest on ties. Each survivor takes the position of its id's first
// appearance.
func Dedupe(snaps []model.Snapshot) []model.Snapshot {
	pos := make(map[string]int, len(snaps))
	out := make([]model.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		i, seen := pos[s.MarketID]
		if !seen {
			pos[s.MarketID] = len(out)
			out = append(out, s)
			continue
		}
		if s.VolumeOrZero() > out[i].VolumeOrZero() {
			out[i] = s
		}
	}
	return out
}
