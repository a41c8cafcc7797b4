package sim

// EventKind distinguishes the two simulation events. The numeric order is the
// tie-break priority for events scheduled at the same instant.
type EventKind int

const (
	// EventDeparture releases a routed connection. Processed before an
	// arrival with the same timestamp so freed trunks are visible to it.
	EventDeparture EventKind = iota
	// EventArrival requests a new connection.
	EventArrival
)

func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "Arrival"
	case EventDeparture:
		return "Departure"
	default:
		return "Unknown"
	}
}

// Event defines the interface for all simulation events.
// Each event has an absolute Timestamp and an Execute method that advances
// simulation state when invoked.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Execute(*Simulator) error
}

// ArrivalEvent represents a connection request. It carries no connection;
// the Director generates one while the event executes.
type ArrivalEvent struct {
	time float64
}

// Timestamp returns the scheduled time of the ArrivalEvent.
func (e *ArrivalEvent) Timestamp() float64 { return e.time }

// Kind returns EventArrival.
func (e *ArrivalEvent) Kind() EventKind { return EventArrival }

// Execute schedules the successor arrival, then generates and routes a
// connection for this one.
func (e *ArrivalEvent) Execute(sim *Simulator) error {
	return sim.handleArrival(e)
}

// DepartureEvent releases the connection it carries.
type DepartureEvent struct {
	time       float64
	Connection *Connection
}

// Timestamp returns the scheduled time of the DepartureEvent.
func (e *DepartureEvent) Timestamp() float64 { return e.time }

// Kind returns EventDeparture.
func (e *DepartureEvent) Kind() EventKind { return EventDeparture }

// Execute releases the carried connection's trunks.
func (e *DepartureEvent) Execute(sim *Simulator) error {
	return sim.handleDeparture(e)
}
