package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// SortKey names a sortable column.
type SortKey string

// Sortable columns.
const (
	SortVolume       SortKey = "volume"
	SortPrice        SortKey = "price"
	SortCleanPrice   SortKey = "cleanPrice"
	SortChange       SortKey = "changePct"
	SortChange7d     SortKey = "change7dPct"
	SortDollarVolume SortKey = "dollarVolume"
	SortExpiration   SortKey = "expiration"
	SortMarketName   SortKey = "market_name"
	SortEventName    SortKey = "event_name"
	SortSource       SortKey = "source"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var numericKeys = map[SortKey]func(model.Row) *float64{
	SortVolume:       func(r model.Row) *float64 { return r.Volume },
	SortPrice:        func(r model.Row) *float64 { return r.Price },
	SortCleanPrice:   func(r model.Row) *float64 { return r.CleanPrice },
	SortChange:       func(r model.Row) *float64 { return r.ChangePct },
	SortChange7d:     func(r model.Row) *float64 { return r.Change7dPct },
	SortDollarVolume: func(r model.Row) *float64 { return r.DollarVolume },
	SortExpiration: func(r model.Row) *float64 {
		if r.Expiration == nil {
			return nil
		}
		v := float64(r.Expiration.UnixNano())
		return &v
	},
}

var stringKeys = map[SortKey]func(model.Row) string{
	SortMarketName: func(r model.Row) string { return r.MarketName },
	SortEventName:  func(r model.Row) string { return r.EventName },
	SortSource:     func(r model.Row) string { return r.CleanSource },
}

// ParseSortKey validates a requested column.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	if _, ok := numericKeys[k]; ok {
		return k, nil
	}
	if _, ok := stringKeys[k]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseDirection validates a requested direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Asc, Desc:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// Sort orders rows in place by key and direction. The sort is stable, so
// equal rows keep their relative order and a repeated sort is a no-op.
// Missing numbers sort as negative infinity. Unknown keys leave rows as is.
func Sort(rows []model.Row, key SortKey, dir Direction) {
	var less func(a, b model.Row) bool

	if get, ok := numericKeys[key]; ok {
		less = func(a, b model.Row) bool { return numeric(get(a)) < numeric(get(b)) }
	} else if get, ok := stringKeys[key]; ok {
		less = func(a, b model.Row) bool { return get(a) < get(b) }
	} else {
		return
	}

	if dir == Desc {
		sort.SliceStable(rows, func(i, j int) bool { return less(rows[j], rows[i]) })
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func numeric(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return math.Inf(-1)
	}
	return *v
}

// Toggle returns the next sort state after a header click: the same key
// while descending flips to ascending, anything else sorts descending.
func Toggle(curKey SortKey, curDir Direction, clicked SortKey) (SortKey, Direction) {
	if curKey == clicked && curDir == Desc {
		return clicked, Asc
	}
	return clicked, Desc
}

// Limit returns at most n rows. n <= 0 means no limit.
func Limit(rows []model.Row, n int) []model.Row {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}
