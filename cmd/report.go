package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/wdmsim/wdmsim/sim"
	"github.com/wdmsim/wdmsim/sim/replication"
	"github.com/wdmsim/wdmsim/sim/trace"
)

// printBatch writes one block per batch: a line per replica, the averaged
// estimate, the Erlang-B reference when it is exact and the merged trace
// summary when tracing was on.
func printBatch(w io.Writer, b *replication.BatchResult) {
	cfg := b.Config
	fmt.Fprintf(w, "=== W=%d mode=%s nodes=%d load=%.3f Erlang (batch %s) ===\n",
		b.WavelengthCount, cfg.WavelengthMode, cfg.NodeCount, cfg.OfferedLoad(), b.ID)
	for _, r := range b.Runs {
		label := fmt.Sprintf("replica %d", r.Index)
		if r.Err != nil {
			fmt.Fprintf(w, "%-12s FAILED: %v\n", label, r.Err)
			continue
		}
		r.Stats.Print(w, label)
	}
	fmt.Fprintf(w, "Average Pb over %d runs: %.6f\n", b.Summary.N, b.Summary.MeanPb)
	fmt.Fprintf(w, "  %s\n", b.Summary)
	if ref, exact := sim.AnalyticBlocking(cfg); exact {
		fmt.Fprintf(w, "  Erlang-B reference (c=%d, A=%.3f): %.6f\n", cfg.WavelengthCount, cfg.OfferedLoad(), ref)
	}
	if ts := mergeTraceSummaries(b.Runs); ts != nil {
		scope := "sampled arrivals"
		if cfg.TraceWarmup {
			scope = "all arrivals"
		}
		printTraceSummary(w, ts, scope)
	}
	fmt.Fprintln(w)
}

// flushLogs writes the buffered debug logs in replica order.
func flushLogs(w io.Writer, b *replication.BatchResult) {
	for _, r := range b.Runs {
		if len(r.Log) == 0 {
			continue
		}
		fmt.Fprintf(w, "--- W=%d replica %d debug log ---\n", b.WavelengthCount, r.Index)
		_, _ = w.Write(r.Log)
	}
}

// mergeTraceSummaries sums per-run summaries, or returns nil without traces.
func mergeTraceSummaries(runs []replication.RunResult) *trace.TraceSummary {
	var merged *trace.TraceSummary
	byHops := make(map[int]*trace.HopStats)
	for _, r := range runs {
		if r.Trace == nil {
			continue
		}
		if merged == nil {
			merged = &trace.TraceSummary{
				WavelengthUsage: make(map[int]int),
				PairCounts:      make(map[[2]int]int),
			}
		}
		merged.TotalDecisions += r.Trace.TotalDecisions
		merged.RoutedCount += r.Trace.RoutedCount
		merged.BlockedCount += r.Trace.BlockedCount
		merged.ConvertedCount += r.Trace.ConvertedCount
		for w, n := range r.Trace.WavelengthUsage {
			merged.WavelengthUsage[w] += n
		}
		for p, n := range r.Trace.PairCounts {
			merged.PairCounts[p] += n
		}
		for _, h := range r.Trace.ByHops {
			acc, ok := byHops[h.Hops]
			if !ok {
				acc = &trace.HopStats{Hops: h.Hops}
				byHops[h.Hops] = acc
			}
			acc.Routed += h.Routed
			acc.Blocked += h.Blocked
		}
	}
	if merged == nil {
		return nil
	}
	for _, h := range byHops {
		merged.ByHops = append(merged.ByHops, *h)
	}
	sort.Slice(merged.ByHops, func(i, j int) bool { return merged.ByHops[i].Hops < merged.ByHops[j].Hops })
	return merged
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary, scope string) {
	fmt.Fprintf(w, "  Decisions (%s): %d routed=%d blocked=%d converted=%d\n",
		scope, ts.TotalDecisions, ts.RoutedCount, ts.BlockedCount, ts.ConvertedCount)
	for _, h := range ts.ByHops {
		fmt.Fprintf(w, "    hops=%-3d routed=%-8d blocked=%-8d rate=%.4f\n", h.Hops, h.Routed, h.Blocked, h.BlockingRate())
	}
	wavelengths := make([]int, 0, len(ts.WavelengthUsage))
	for wl := range ts.WavelengthUsage {
		wavelengths = append(wavelengths, wl)
	}
	sort.Ints(wavelengths)
	for _, wl := range wavelengths {
		fmt.Fprintf(w, "    w%-3d trunks acquired=%d\n", wl, ts.WavelengthUsage[wl])
	}
}
