// Package sim provides the discrete-event simulation engine for estimating
// call-blocking probability on a WDM optical bus.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - topology.go: Trunk (one wavelength on one link) and the linear Topology
//   - connection.go: Connection lifecycle (pending → routed → released, or blocked)
//   - director.go: demand generation and wavelength assignment per WavelengthMode
//   - event.go / queue.go: Arrival and Departure events and their ordering
//   - simulator.go: the event loop and the warming-up → sampling → done phases
//
// # Architecture
//
// One Simulator is one replication. It owns its Topology, Director, EventQueue,
// random streams, debug log buffer and decision trace; nothing is shared
// between Simulators. Sub-packages build on it:
//   - sim/replication/: concurrent replications, averaging and wavelength sweeps
//   - sim/trace/: routing decision recording
//
// # Randomness
//
// Every run draws from three independent VariateSource streams (arrival,
// holding, demand). NewSeededStreams derives them from a SimulationKey with
// PartitionedRNG; NewMRGStreams uses MRG32k3a streams instead.
package sim
