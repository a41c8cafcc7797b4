// Package trace provides routing-decision recording for a single simulation run.
// This package has no dependencies on sim/ and stores plain data types.
package trace

// RoutingRecord captures one arrival and the Director's decision for it.
type RoutingRecord struct {
	ConnectionID uint64
	Clock        float64
	StartNode    int
	EndNode      int
	Routed       bool
	Sampled      bool  // false during warm-up
	Wavelengths  []int // wavelength per traversed link; nil when blocked
}

// Hops returns the number of links the demand spans.
func (r RoutingRecord) Hops() int {
	return r.EndNode - r.StartNode
}

// Converted reports whether a routed connection changes wavelength on the way.
func (r RoutingRecord) Converted() bool {
	for i := 1; i < len(r.Wavelengths); i++ {
		if r.Wavelengths[i] != r.Wavelengths[0] {
			return true
		}
	}
	return false
}
