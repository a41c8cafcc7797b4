// Tracks per-run blocking statistics reported when a run reaches its target.

package sim

import (
	"fmt"
	"io"
)

// RunStatistics is the record one run emits on completion. Sampled, Blocked
// and Pb are the blocking estimate; the remaining fields describe the run.
type RunStatistics struct {
	Sampled    int64   // arrivals counted after warm-up
	Blocked    int64   // sampled arrivals that could not be routed
	Pb         float64 // Blocked / Sampled
	Arrivals   int64   // all processed arrivals, warm-up included
	Departures int64   // processed departures
	Events     int64   // processed events of both kinds
	SimTime    float64 // clock value of the last processed event
}

// NewRunStatistics computes Pb from the counters. Pb is 0 when nothing was
// sampled.
func NewRunStatistics(sampled, blocked int64) RunStatistics {
	s := RunStatistics{Sampled: sampled, Blocked: blocked}
	if sampled > 0 {
		s.Pb = float64(blocked) / float64(sampled)
	}
	return s
}

func (s RunStatistics) String() string {
	return fmt.Sprintf("sampled=%d blocked=%d Pb=%.6f", s.Sampled, s.Blocked, s.Pb)
}

// Print writes the record in the CLI's report layout.
func (s RunStatistics) Print(w io.Writer, label string) {
	fmt.Fprintf(w, "%-12s sampled=%-8d blocked=%-8d Pb=%.6f  (arrivals=%d departures=%d t=%.3f)\n",
		label, s.Sampled, s.Blocked, s.Pb, s.Arrivals, s.Departures, s.SimTime)
}
