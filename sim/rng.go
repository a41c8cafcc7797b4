package sim

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/iti/rngstream"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemArrival drives connection inter-arrival times.
	SubsystemArrival = "arrival"

	// SubsystemHolding drives connection holding times.
	SubsystemHolding = "holding"

	// SubsystemDemand drives source/destination node draws.
	SubsystemDemand = "demand"
)

// SubsystemReplica returns the subsystem name used to derive the seed of
// replica N from a batch-level key.
func SubsystemReplica(id int) string {
	return fmt.Sprintf("replica_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// ReplicaKey derives the SimulationKey of replica id. The derivation only
// depends on the master key and id, never on call order.
func (p *PartitionedRNG) ReplicaKey(id int) SimulationKey {
	return SimulationKey(int64(p.key) ^ fnv1a64(SubsystemReplica(id)))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// === Variate sources ===

// VariateSource is the black-box random source a run draws from.
// *rand.Rand satisfies it.
type VariateSource interface {
	// ExpFloat64 returns an exponential deviate with mean 1.
	ExpFloat64() float64
	// Intn returns a uniform integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// Streams groups the independent sources used by one run.
type Streams struct {
	Arrival VariateSource
	Holding VariateSource
	Demand  VariateSource
}

// NewSeededStreams derives the three run streams from a key via
// PartitionedRNG.
func NewSeededStreams(key SimulationKey) Streams {
	p := NewPartitionedRNG(key)
	return Streams{
		Arrival: p.ForSubsystem(SubsystemArrival),
		Holding: p.ForSubsystem(SubsystemHolding),
		Demand:  p.ForSubsystem(SubsystemDemand),
	}
}

// NewMRGStreams allocates three fresh MRG32k3a streams named after the run.
// rngstream keeps package-level state, so callers must allocate streams from
// a single goroutine before handing them to workers.
func NewMRGStreams(name string) Streams {
	return Streams{
		Arrival: &mrgSource{s: rngstream.New(name + "/" + SubsystemArrival)},
		Holding: &mrgSource{s: rngstream.New(name + "/" + SubsystemHolding)},
		Demand:  &mrgSource{s: rngstream.New(name + "/" + SubsystemDemand)},
	}
}

// mrgSource adapts an rngstream.RngStream to VariateSource.
type mrgSource struct {
	s *rngstream.RngStream
}

// ExpFloat64 uses inversion. RandU01 never returns 0 or 1.
func (m *mrgSource) ExpFloat64() float64 {
	return -math.Log(1 - m.s.RandU01())
}

func (m *mrgSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("mrgSource.Intn: n must be > 0, got %d", n))
	}
	i := int(m.s.RandU01() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// expInterval draws an exponential interval with the given rate (mean 1/rate).
func expInterval(src VariateSource, rate float64) float64 {
	return src.ExpFloat64() / rate
}
