// sim/simulator.go
package sim

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/wdmsim/wdmsim/sim/trace"
)

// Phase is the run's position in its warm-up / sampling lifecycle.
type Phase string

const (
	PhaseWarmingUp Phase = "warming-up"
	PhaseSampling  Phase = "sampling"
	PhaseDone      Phase = "done"
)

// Simulator is the core object that holds simulation time, the private
// topology, the Director and the event loop of one run. It is not safe for
// concurrent use; replicas each own a Simulator.
type Simulator struct {
	Clock  float64
	Config Config
	// Topology is owned by this run only.
	Topology *Topology
	Director Director
	// EventQueue has all pending arrival and departure events.
	EventQueue *EventQueue
	// Trace is nil unless Config.TraceLevel is "decisions".
	Trace *trace.SimulationTrace

	phase      Phase
	arrivals   int64
	departures int64
	events     int64
	sampled    int64
	blocked    int64
	routed     map[uint64]*Connection // connections currently holding a path
	streams    Streams
	started    bool

	log    *logrus.Logger
	logBuf *bytes.Buffer
}

// NewSimulator validates cfg and builds a run with its own topology and
// Director, drawing randomness from streams.
func NewSimulator(cfg Config, streams Streams) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	topo, err := NewTopology(cfg.NodeCount, cfg.WavelengthCount)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		Config:     cfg,
		Topology:   topo,
		Director:   NewDirector(cfg.WavelengthMode, topo, streams.Demand),
		EventQueue: NewEventQueue(),
		phase:      PhaseWarmingUp,
		routed:     make(map[uint64]*Connection),
		streams:    streams,
	}
	if cfg.TraceLevel == trace.TraceLevelDecisions {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{
			Level:       cfg.TraceLevel,
			SampledOnly: !cfg.TraceWarmup,
		})
	}

	// Each run logs into its own buffer; the caller flushes it after Run.
	s.log = logrus.New()
	s.log.SetOutput(io.Discard)
	if cfg.Debug {
		s.logBuf = &bytes.Buffer{}
		s.log.SetOutput(s.logBuf)
		s.log.SetLevel(logrus.DebugLevel)
		s.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	}
	return s, nil
}

// Phase returns the current lifecycle phase.
func (sim *Simulator) Phase() Phase {
	return sim.phase
}

// Routed returns the connections currently holding a path, ordered by ID.
func (sim *Simulator) Routed() []*Connection {
	conns := slices.Collect(maps.Values(sim.routed))
	slices.SortFunc(conns, func(a, b *Connection) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return conns
}

// Schedule pushes an event (ArrivalEvent/DepartureEvent) into the EventQueue.
func (sim *Simulator) Schedule(ev Event) {
	sim.EventQueue.Schedule(ev)
}

// Run drives the event loop until TargetCount arrivals have been sampled
// and returns the run's statistics. A Simulator runs at most once.
func (sim *Simulator) Run() (RunStatistics, error) {
	if sim.started {
		return RunStatistics{}, fmt.Errorf("%w: simulator already ran", ErrInvalidState)
	}
	sim.started = true

	// The first arrival seeds the self-sustaining arrival chain.
	sim.Schedule(&ArrivalEvent{time: expInterval(sim.streams.Arrival, sim.Config.Lambda)})

	for sim.phase != PhaseDone {
		ev := sim.EventQueue.PopNext()
		if ev == nil {
			return sim.Statistics(), fmt.Errorf("%w: event queue drained after %d events with %d/%d samples",
				ErrInvalidState, sim.events, sim.sampled, sim.Config.TargetCount)
		}
		if ev.Timestamp() < sim.Clock {
			return sim.Statistics(), fmt.Errorf("%w: clock went backwards: %v < %v", ErrInvalidState, ev.Timestamp(), sim.Clock)
		}
		sim.Clock = ev.Timestamp()
		sim.log.Debugf("(%.6f) executing %s", sim.Clock, ev.Kind())

		if err := ev.Execute(sim); err != nil {
			return sim.Statistics(), err
		}
		sim.events++

		if sim.Config.CheckInvariants {
			if err := sim.Topology.VerifyOccupancy(sim.Routed()); err != nil {
				return sim.Statistics(), fmt.Errorf("after event %d at t=%v: %w", sim.events, sim.Clock, err)
			}
		}
		sim.advancePhase()
	}

	sim.log.Debugf("(%.6f) run complete: %s", sim.Clock, sim.Statistics())
	return sim.Statistics(), nil
}

// advancePhase applies the warming-up → sampling → done transitions.
func (sim *Simulator) advancePhase() {
	if sim.phase == PhaseWarmingUp && sim.arrivals > sim.Config.TransientCount {
		sim.phase = PhaseSampling
		sim.log.Debugf("(%.6f) warm-up complete after %d arrivals", sim.Clock, sim.Config.TransientCount)
	}
	// Stop after exactly TargetCount sampled arrivals, not TargetCount+1.
	if sim.phase == PhaseSampling && sim.sampled >= sim.Config.TargetCount {
		sim.phase = PhaseDone
	}
}

func (sim *Simulator) handleArrival(e *ArrivalEvent) error {
	sim.arrivals++
	sampled := sim.arrivals > sim.Config.TransientCount

	// Schedule the successor first so the arrival chain never starves.
	next := &ArrivalEvent{time: e.time + expInterval(sim.streams.Arrival, sim.Config.Lambda)}
	sim.Schedule(next)
	sim.log.Debugf("(%.6f) next arrival at %.6f", e.time, next.time)

	conn, err := sim.Director.GenerateConnection()
	if err != nil {
		return err
	}
	sim.log.Debugf("(%.6f) routing connection %d from %d to %d", e.time, conn.ID, conn.StartNode, conn.EndNode)

	ok, err := sim.Director.Route(conn)
	if err != nil {
		return fmt.Errorf("routing connection %d: %w", conn.ID, err)
	}
	if ok && sim.Config.CheckInvariants && sim.Config.WavelengthMode.Continuous() {
		if wl := conn.Wavelengths(); len(slices.Compact(slices.Clone(wl))) != 1 {
			return fmt.Errorf("%w: connection %d converts wavelengths %v under %s", ErrInvalidState, conn.ID, wl, sim.Config.WavelengthMode)
		}
	}
	if ok {
		sim.routed[conn.ID] = conn
		dep := &DepartureEvent{time: e.time + expInterval(sim.streams.Holding, sim.Config.Mu), Connection: conn}
		sim.Schedule(dep)
		sim.log.Debugf("(%.6f) routed %v, departs at %.6f", e.time, conn, dep.time)
	} else {
		if err := conn.MarkBlocked(); err != nil {
			return err
		}
		if sampled {
			sim.blocked++
		}
		sim.log.Debugf("(%.6f) blocked connection %d", e.time, conn.ID)
	}
	if sampled {
		sim.sampled++
	}

	if sim.Trace.Enabled() {
		rec := trace.RoutingRecord{
			ConnectionID: conn.ID,
			Clock:        e.time,
			StartNode:    conn.StartNode,
			EndNode:      conn.EndNode,
			Routed:       ok,
			Sampled:      sampled,
		}
		if ok {
			rec.Wavelengths = conn.Wavelengths()
		}
		sim.Trace.RecordRouting(rec)
	}
	return nil
}

func (sim *Simulator) handleDeparture(e *DepartureEvent) error {
	conn := e.Connection
	if conn == nil {
		return fmt.Errorf("%w: departure at %v carries no connection", ErrInvalidState, e.time)
	}
	sim.log.Debugf("(%.6f) releasing %v", e.time, conn)
	if err := conn.Release(); err != nil {
		return err
	}
	delete(sim.routed, conn.ID)
	sim.departures++
	return nil
}

// Statistics returns the counters collected so far.
func (sim *Simulator) Statistics() RunStatistics {
	s := NewRunStatistics(sim.sampled, sim.blocked)
	s.Arrivals = sim.arrivals
	s.Departures = sim.departures
	s.Events = sim.events
	s.SimTime = sim.Clock
	return s
}

// FlushLog writes the run's debug log to w and empties the buffer.
// A no-op unless Config.Debug is set.
func (sim *Simulator) FlushLog(w io.Writer) error {
	if sim.logBuf == nil {
		return nil
	}
	_, err := sim.logBuf.WriteTo(w)
	return err
}
