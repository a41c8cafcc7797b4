package replication

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, s)
}

func TestSummarize_SingleRunHasNoSpread(t *testing.T) {
	s := Summarize([]float64{0.2})
	assert.Equal(t, 1, s.N)
	assert.Equal(t, 0.2, s.MeanPb)
	assert.Zero(t, s.StdDev)
	assert.Zero(t, s.CI95)
}

func TestSummarize_KnownValues(t *testing.T) {
	// GIVEN four estimates with mean 0.25 and sample variance 1/60
	pbs := []float64{0.1, 0.2, 0.3, 0.4}

	// WHEN summarized
	s := Summarize(pbs)

	// THEN mean, spread and Student-t half-width match hand computation
	sd := math.Sqrt(0.05 / 3)
	assert.InDelta(t, 0.25, s.MeanPb, 1e-12)
	assert.InDelta(t, sd, s.StdDev, 1e-12)
	assert.InDelta(t, sd/2, s.StdErr, 1e-12)
	// t(0.975, 3) = 3.182446
	assert.InDelta(t, 3.182446*sd/2, s.CI95, 1e-5)
}

func TestSummary_IntervalClamped(t *testing.T) {
	s := Summary{N: 3, MeanPb: 0.01, CI95: 0.05}
	lo, hi := s.Interval()
	assert.Zero(t, lo)
	assert.InDelta(t, 0.06, hi, 1e-12)
	assert.Contains(t, s.String(), "mean Pb=0.010000")
}
