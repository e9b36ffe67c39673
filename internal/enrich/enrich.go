// Package enrich derives display fields from raw snapshots: the validated
// price, the 24-hour and 7-day changes, and the normalized source label.
package enrich

import (
	"fmt"
	"math"
	"strings"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// ChangeMode selects how a price change is expressed.
type ChangeMode string

const (
	// ChangePoints is the probability difference times 100.
	ChangePoints ChangeMode = "points"

	// ChangeRelative is the difference relative to the earlier price, in percent.
	ChangeRelative ChangeMode = "relative"
)

// ParseChangeMode validates a configured mode.
func ParseChangeMode(s string) (ChangeMode, error) {
	switch ChangeMode(s) {
	case ChangePoints, ChangeRelative:
		return ChangeMode(s), nil
	case "":
		return ChangePoints, nil
	default:
		return "", fmt.Errorf("unknown change mode %q", s)
	}
}

// CleanPrice returns p when it is a probability in [0,1], nil otherwise.
func CleanPrice(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || *p < 0 || *p > 1 {
		return nil
	}
	v := *p
	return &v
}

// CleanSource folds every polymarket feed variant into one label.
func CleanSource(source string) string {
	if strings.HasPrefix(source, model.SourcePolymarket) {
		return model.SourcePolymarket
	}
	return source
}

// PreviousPrices keeps the first sample seen per market. Points must be
// ordered newest first, so the first sample is the most recent one in the
// window. A market whose first sample has no price maps to nil.
func PreviousPrices(points []model.PricePoint) map[string]*float64 {
	prev := make(map[string]*float64, len(points))
	for _, p := range points {
		if _, seen := prev[p.MarketID]; seen {
			continue
		}
		prev[p.MarketID] = p.Price
	}
	return prev
}

// ChangePct compares a current and a previous price. It is nil when either
// price is nil, and in relative mode when the previous price is zero.
func ChangePct(current, previous *float64, mode ChangeMode) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	var v float64
	switch mode {
	case ChangeRelative:
		if *previous == 0 {
			return nil
		}
		v = (*current - *previous) / *previous * 100
	default:
		v = (*current - *previous) * 100
	}
	return &v
}

// DollarVolume estimates the money that moved the price: |current - previous| * volume.
func DollarVolume(current, previous, volume *float64) *float64 {
	if current == nil || previous == nil || volume == nil {
		return nil
	}
	v := math.Abs(*current-*previous) * *volume
	return &v
}

// Enricher turns snapshots into rows.
type Enricher struct {
	Mode ChangeMode
}

// Enrich derives the display fields for each snapshot. prev24 and prev7 map
// market ids to the historical price used for the 24-hour and 7-day change;
// either may be nil. Historical prices outside [0,1] count as missing.
func (e Enricher) Enrich(snaps []model.Snapshot, prev24, prev7 map[string]*float64) []model.Row {
	rows := make([]model.Row, len(snaps))
	for i, s := range snaps {
		clean := CleanPrice(s.Price)
		p24 := CleanPrice(prev24[s.MarketID])
		p7 := CleanPrice(prev7[s.MarketID])

		rows[i] = model.Row{
			Snapshot:     s,
			CleanPrice:   clean,
			Price24h:     p24,
			ChangePct:    ChangePct(clean, p24, e.Mode),
			Price7d:      p7,
			Change7dPct:  ChangePct(clean, p7, e.Mode),
			CleanSource:  CleanSource(s.Source),
			DollarVolume: DollarVolume(clean, p24, s.Volume),
		}
	}
	return rows
}
