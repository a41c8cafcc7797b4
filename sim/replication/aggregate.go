package replication

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary describes the spread of per-run blocking probabilities in a batch.
type Summary struct {
	N      int     // successful runs averaged
	MeanPb float64 // arithmetic mean of per-run Pb
	StdDev float64 // sample standard deviation; 0 when N < 2
	StdErr float64 // StdDev / sqrt(N)
	CI95   float64 // half-width of the 95% Student-t interval around MeanPb
}

// Summarize averages the per-run estimates. Every run carries equal weight
// regardless of how many arrivals it sampled.
func Summarize(pbs []float64) Summary {
	s := Summary{N: len(pbs)}
	if s.N == 0 {
		return s
	}
	s.MeanPb = stat.Mean(pbs, nil)
	if s.N < 2 {
		return s
	}
	s.StdDev = stat.StdDev(pbs, nil)
	s.StdErr = stat.StdErr(s.StdDev, float64(s.N))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(s.N - 1)}
	s.CI95 = t.Quantile(0.975) * s.StdErr
	return s
}

// Interval returns the 95% confidence bounds clamped to [0, 1].
func (s Summary) Interval() (lo, hi float64) {
	return math.Max(0, s.MeanPb-s.CI95), math.Min(1, s.MeanPb+s.CI95)
}

func (s Summary) String() string {
	lo, hi := s.Interval()
	return fmt.Sprintf("mean Pb=%.6f sd=%.6f se=%.6f 95%% CI=[%.6f, %.6f] (n=%d)",
		s.MeanPb, s.StdDev, s.StdErr, lo, hi, s.N)
}
