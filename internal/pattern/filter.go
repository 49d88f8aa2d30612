package pattern

import (
	"slices"

	"PriceActionBot/internal/model"
)

// Filter keeps matches at or above minStrength. If directions are given,
// only matches with one of those directions are kept.
func Filter(matches []model.Match, minStrength float64, directions ...model.Direction) []model.Match {
	out := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Strength < minStrength {
			continue
		}
		if len(directions) > 0 && !slices.Contains(directions, m.Direction) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Stats aggregates a batch of detections.
type Stats struct {
	Total        int
	ByKind       map[model.Kind]int
	ByDirection  map[model.Direction]int
	BySymbol     map[string]int
	ByTimeframe  map[model.Timeframe]int
	MeanStrength float64
}

// Summarize counts matches along each dimension.
func Summarize(matches []model.Match) Stats {
	st := Stats{
		ByKind:      make(map[model.Kind]int),
		ByDirection: make(map[model.Direction]int),
		BySymbol:    make(map[string]int),
		ByTimeframe: make(map[model.Timeframe]int),
	}
	var sum float64
	for _, m := range matches {
		sig := m.Signal()
		st.Total++
		st.ByKind[m.Kind]++
		st.ByDirection[m.Direction]++
		st.BySymbol[sig.Symbol]++
		st.ByTimeframe[sig.Timeframe]++
		sum += m.Strength
	}
	if st.Total > 0 {
		st.MeanStrength = sum / float64(st.Total)
	}
	return st
}
