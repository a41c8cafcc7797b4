package sim

import (
	"fmt"
	"math"

	"github.com/wdmsim/wdmsim/sim/trace"
)

// WavelengthMode selects the demand pattern and wavelength-assignment policy.
type WavelengthMode string

const (
	// ModeBetweenAny routes random node pairs under wavelength continuity.
	ModeBetweenAny WavelengthMode = "between_any"
	// ModeFirstAndLast routes every demand from the first to the last node
	// under wavelength continuity.
	ModeFirstAndLast WavelengthMode = "first_and_last"
	// ModeWavelengthConversion routes random node pairs and lets each link
	// pick its own wavelength.
	ModeWavelengthConversion WavelengthMode = "wavelength_conversion"
)

// validWavelengthModes is shared by ParseWavelengthMode and Config.Validate.
var validWavelengthModes = map[WavelengthMode]bool{
	ModeBetweenAny:           true,
	ModeFirstAndLast:         true,
	ModeWavelengthConversion: true,
}

// WavelengthModes lists the accepted modes in display order.
func WavelengthModes() []WavelengthMode {
	return []WavelengthMode{ModeBetweenAny, ModeFirstAndLast, ModeWavelengthConversion}
}

// ParseWavelengthMode converts a CLI or YAML string into a WavelengthMode.
func ParseWavelengthMode(s string) (WavelengthMode, error) {
	m := WavelengthMode(s)
	if !validWavelengthModes[m] {
		return "", fmt.Errorf("%w: unknown wavelength mode %q", ErrInvalidConfiguration, s)
	}
	return m, nil
}

// Continuous reports whether the mode enforces wavelength continuity.
func (m WavelengthMode) Continuous() bool {
	return m != ModeWavelengthConversion
}

// RNGKind selects the random-variate source backing each run.
type RNGKind string

const (
	// RNGMathRand uses math/rand generators derived from the seed (default).
	RNGMathRand RNGKind = "math-rand"
	// RNGMRG32k3a uses L'Ecuyer MRG32k3a streams; the seed is ignored and
	// streams are handed out in creation order.
	RNGMRG32k3a RNGKind = "mrg32k3a"
)

var validRNGKinds = map[RNGKind]bool{"": true, RNGMathRand: true, RNGMRG32k3a: true}

// Config holds every parameter of a batch of replicated runs.
// Zero values are not meaningful; start from DefaultConfig.
type Config struct {
	SimulationCount int            `yaml:"simulation_count"` // independent replications to average
	NodeCount       int            `yaml:"node_count"`       // nodes on the bus (>= 2)
	Lambda          float64        `yaml:"lambda"`           // arrival rate (> 0)
	Mu              float64        `yaml:"mu"`               // service rate (> 0)
	WavelengthCount int            `yaml:"wavelength_count"` // wavelengths per link (>= 1); sweep maximum when stepping
	WavelengthMode  WavelengthMode `yaml:"wavelength_mode"`
	TransientCount  int64          `yaml:"transient_count"` // warm-up arrivals excluded from statistics
	TargetCount     int64          `yaml:"target_count"`    // sampled arrivals collected after warm-up (>= 1)
	StepWavelength  bool           `yaml:"step_wavelength"` // sweep wavelength count from 2 to WavelengthCount

	Seed            int64            `yaml:"seed"`
	RNG             RNGKind          `yaml:"rng"`
	CheckInvariants bool             `yaml:"check_invariants"` // verify trunk occupancy after every event
	Debug           bool             `yaml:"debug"`            // keep a per-run debug log buffer
	TraceLevel      trace.TraceLevel `yaml:"trace_level"`
	TraceWarmup     bool             `yaml:"trace_warmup"` // also trace warm-up arrivals
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		SimulationCount: 8,
		NodeCount:       10,
		Lambda:          5.0,
		Mu:              1.0,
		WavelengthCount: 10,
		WavelengthMode:  ModeBetweenAny,
		TransientCount:  100,
		TargetCount:     800,
		Seed:            42,
		RNG:             RNGMathRand,
		CheckInvariants: true,
		TraceLevel:      trace.TraceLevelNone,
	}
}

// Validate checks every field and returns an error wrapping
// ErrInvalidConfiguration for the first violation found.
func (c Config) Validate() error {
	if c.SimulationCount < 1 {
		return fmt.Errorf("%w: simulation count must be >= 1, got %d", ErrInvalidConfiguration, c.SimulationCount)
	}
	if err := validateTopology(c.NodeCount, c.WavelengthCount); err != nil {
		return err
	}
	if !(c.Lambda > 0) || math.IsInf(c.Lambda, 0) {
		return fmt.Errorf("%w: lambda must be a finite value > 0, got %v", ErrInvalidConfiguration, c.Lambda)
	}
	if !(c.Mu > 0) || math.IsInf(c.Mu, 0) {
		return fmt.Errorf("%w: mu must be a finite value > 0, got %v", ErrInvalidConfiguration, c.Mu)
	}
	if !validWavelengthModes[c.WavelengthMode] {
		return fmt.Errorf("%w: unknown wavelength mode %q", ErrInvalidConfiguration, c.WavelengthMode)
	}
	if c.TransientCount < 0 {
		return fmt.Errorf("%w: transient count must be >= 0, got %d", ErrInvalidConfiguration, c.TransientCount)
	}
	if c.TargetCount < 1 {
		return fmt.Errorf("%w: target count must be >= 1, got %d", ErrInvalidConfiguration, c.TargetCount)
	}
	if !validRNGKinds[c.RNG] {
		return fmt.Errorf("%w: unknown rng %q", ErrInvalidConfiguration, c.RNG)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("%w: unknown trace level %q", ErrInvalidConfiguration, c.TraceLevel)
	}
	return nil
}

// OfferedLoad returns lambda/mu in Erlangs.
func (c Config) OfferedLoad() float64 {
	return c.Lambda / c.Mu
}

func validateTopology(nodeCount, wavelengthCount int) error {
	if nodeCount < 2 {
		return fmt.Errorf("%w: node count must be >= 2, got %d", ErrInvalidConfiguration, nodeCount)
	}
	if wavelengthCount < 1 {
		return fmt.Errorf("%w: wavelength count must be >= 1, got %d", ErrInvalidConfiguration, wavelengthCount)
	}
	return nil
}
