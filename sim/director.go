package sim

import "fmt"

// Director generates connection demands and decides whether and how they are
// routed over a Topology. Each WavelengthMode has its own implementation,
// selected once by NewDirector.
type Director interface {
	// GenerateConnection returns one new pending connection.
	GenerateConnection() (*Connection, error)
	// Route tries to acquire a path for conn. It returns false when the
	// demand is blocked; an error means the resource model is corrupted.
	Route(conn *Connection) (bool, error)
	// Mode returns the policy this Director implements.
	Mode() WavelengthMode
}

// NewDirector creates the Director for mode. demand is only consumed by
// modes with random endpoints. Panics on an unknown mode; validate with
// Config.Validate first.
func NewDirector(mode WavelengthMode, topo *Topology, demand VariateSource) Director {
	base := directorBase{topo: topo, demand: demand}
	switch mode {
	case ModeBetweenAny:
		return &BetweenAny{directorBase: base}
	case ModeFirstAndLast:
		return &FirstAndLast{directorBase: base}
	case ModeWavelengthConversion:
		return &WavelengthConversion{directorBase: base}
	default:
		panic(fmt.Sprintf("unhandled wavelength mode %q", mode))
	}
}

// directorBase holds state shared by every policy.
type directorBase struct {
	topo   *Topology
	demand VariateSource
	nextID uint64
}

func (d *directorBase) newConnection(a, b int) (*Connection, error) {
	d.nextID++
	return NewConnection(d.nextID, a, b)
}

// randomPair draws start uniformly over all nodes and end uniformly over the
// remaining nodes, so start != end holds by construction.
func (d *directorBase) randomPair() (int, int) {
	n := d.topo.NodeCount()
	start := d.demand.Intn(n)
	end := d.demand.Intn(n - 1)
	if end >= start {
		end++
	}
	return start, end
}

// BetweenAny connects random node pairs under wavelength continuity.
type BetweenAny struct {
	directorBase
}

// GenerateConnection implements Director for BetweenAny.
func (d *BetweenAny) GenerateConnection() (*Connection, error) {
	return d.newConnection(d.randomPair())
}

// Route implements Director for BetweenAny.
func (d *BetweenAny) Route(conn *Connection) (bool, error) {
	return routeContinuous(d.topo, conn)
}

// Mode implements Director for BetweenAny.
func (d *BetweenAny) Mode() WavelengthMode { return ModeBetweenAny }

// FirstAndLast connects node 0 to the last node on every demand, under
// wavelength continuity. It never draws random numbers.
type FirstAndLast struct {
	directorBase
}

// GenerateConnection implements Director for FirstAndLast.
func (d *FirstAndLast) GenerateConnection() (*Connection, error) {
	return d.newConnection(0, d.topo.NodeCount()-1)
}

// Route implements Director for FirstAndLast.
func (d *FirstAndLast) Route(conn *Connection) (bool, error) {
	return routeContinuous(d.topo, conn)
}

// Mode implements Director for FirstAndLast.
func (d *FirstAndLast) Mode() WavelengthMode { return ModeFirstAndLast }

// WavelengthConversion connects random node pairs and converts wavelengths
// at every hop.
type WavelengthConversion struct {
	directorBase
}

// GenerateConnection implements Director for WavelengthConversion.
func (d *WavelengthConversion) GenerateConnection() (*Connection, error) {
	return d.newConnection(d.randomPair())
}

// Route implements Director for WavelengthConversion.
func (d *WavelengthConversion) Route(conn *Connection) (bool, error) {
	return routeConverted(d.topo, conn)
}

// Mode implements Director for WavelengthConversion.
func (d *WavelengthConversion) Mode() WavelengthMode { return ModeWavelengthConversion }

// routeContinuous acquires the lowest wavelength that is free on every link
// of the connection. Returns false when no single wavelength is free end to end.
func routeContinuous(topo *Topology, conn *Connection) (bool, error) {
	path := make([]*Trunk, 0, conn.Hops())
	for w := 0; w < topo.WavelengthCount(); w++ {
		path = path[:0]
		for l := conn.StartNode; l < conn.EndNode; l++ {
			tr := topo.Trunk(l, w)
			if tr.Occupied() {
				break
			}
			path = append(path, tr)
		}
		if len(path) == conn.Hops() {
			if err := conn.Acquire(path); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// routeConverted acquires the lowest free wavelength on each link
// independently. Returns false, acquiring nothing, as soon as one link is full.
func routeConverted(topo *Topology, conn *Connection) (bool, error) {
	path := make([]*Trunk, 0, conn.Hops())
	for l := conn.StartNode; l < conn.EndNode; l++ {
		var free *Trunk
		for w := 0; w < topo.WavelengthCount(); w++ {
			if tr := topo.Trunk(l, w); !tr.Occupied() {
				free = tr
				break
			}
		}
		if free == nil {
			return false, nil
		}
		path = append(path, free)
	}
	if err := conn.Acquire(path); err != nil {
		return false, err
	}
	return true, nil
}
