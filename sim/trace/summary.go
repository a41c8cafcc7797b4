package trace

import "sort"

// HopStats counts decisions for demands spanning the same number of links.
type HopStats struct {
	Hops    int
	Routed  int
	Blocked int
}

// BlockingRate returns Blocked / (Routed + Blocked), 0 when empty.
func (h HopStats) BlockingRate() float64 {
	total := h.Routed + h.Blocked
	if total == 0 {
		return 0
	}
	return float64(h.Blocked) / float64(total)
}

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions  int
	RoutedCount     int
	BlockedCount    int
	ConvertedCount  int            // routed connections using more than one wavelength
	ByHops          []HopStats     // sorted by Hops ascending
	WavelengthUsage map[int]int    // wavelength → trunks acquired on it
	PairCounts      map[[2]int]int // (start, end) → demands generated
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		WavelengthUsage: make(map[int]int),
		PairCounts:      make(map[[2]int]int),
	}
	if st == nil {
		return summary
	}

	byHops := make(map[int]*HopStats)
	for _, r := range st.Routings {
		summary.TotalDecisions++
		summary.PairCounts[[2]int{r.StartNode, r.EndNode}]++

		hs, ok := byHops[r.Hops()]
		if !ok {
			hs = &HopStats{Hops: r.Hops()}
			byHops[r.Hops()] = hs
		}
		if !r.Routed {
			summary.BlockedCount++
			hs.Blocked++
			continue
		}
		summary.RoutedCount++
		hs.Routed++
		if r.Converted() {
			summary.ConvertedCount++
		}
		for _, w := range r.Wavelengths {
			summary.WavelengthUsage[w]++
		}
	}

	summary.ByHops = make([]HopStats, 0, len(byHops))
	for _, hs := range byHops {
		summary.ByHops = append(summary.ByHops, *hs)
	}
	sort.Slice(summary.ByHops, func(i, j int) bool {
		return summary.ByHops[i].Hops < summary.ByHops[j].Hops
	})
	return summary
}
