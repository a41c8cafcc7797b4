package sim

import (
	"fmt"
	"strings"
)

// Trunk is one wavelength channel on the link between two adjacent nodes.
// Link i spans nodes i and i+1. Identity never changes; occupancy is only
// mutated by Connection.Acquire and Connection.Release.
type Trunk struct {
	link       int
	wavelength int
	occupied   bool
}

// Link returns the index of the link this trunk belongs to.
func (t *Trunk) Link() int { return t.link }

// Wavelength returns the wavelength index of this trunk.
func (t *Trunk) Wavelength() int { return t.wavelength }

// Occupied reports whether a routed connection holds this trunk.
func (t *Trunk) Occupied() bool { return t.occupied }

// StartNode returns the lower node the trunk spans.
func (t *Trunk) StartNode() int { return t.link }

// EndNode returns the higher node the trunk spans.
func (t *Trunk) EndNode() int { return t.link + 1 }

func (t *Trunk) String() string {
	return fmt.Sprintf("(%d)%d->%d", t.wavelength, t.StartNode(), t.EndNode())
}

// Topology is the linear bus: NodeCount-1 links, each with one trunk per
// wavelength. Its shape is fixed at construction.
type Topology struct {
	nodeCount       int
	wavelengthCount int
	links           [][]*Trunk // links[link][wavelength]
}

// NewTopology builds a bus of nodeCount nodes with wavelengthCount trunks per
// link. It fails with ErrInvalidConfiguration when nodeCount < 2 or
// wavelengthCount < 1.
func NewTopology(nodeCount, wavelengthCount int) (*Topology, error) {
	if err := validateTopology(nodeCount, wavelengthCount); err != nil {
		return nil, err
	}
	links := make([][]*Trunk, nodeCount-1)
	for l := range links {
		trunks := make([]*Trunk, wavelengthCount)
		for w := range trunks {
			trunks[w] = &Trunk{link: l, wavelength: w}
		}
		links[l] = trunks
	}
	return &Topology{
		nodeCount:       nodeCount,
		wavelengthCount: wavelengthCount,
		links:           links,
	}, nil
}

// NodeCount returns the number of nodes on the bus.
func (t *Topology) NodeCount() int { return t.nodeCount }

// WavelengthCount returns the number of trunks per link.
func (t *Topology) WavelengthCount() int { return t.wavelengthCount }

// LinkCount returns NodeCount-1.
func (t *Topology) LinkCount() int { return len(t.links) }

// Trunk returns the trunk at the given link and wavelength.
// Panics on out-of-range indices.
func (t *Topology) Trunk(link, wavelength int) *Trunk {
	return t.links[link][wavelength]
}

// FreeWavelengths returns the number of unoccupied trunks on a link.
func (t *Topology) FreeWavelengths(link int) int {
	free := 0
	for _, tr := range t.links[link] {
		if !tr.occupied {
			free++
		}
	}
	return free
}

// OccupiedCount returns the number of occupied trunks on the whole bus.
func (t *Topology) OccupiedCount() int {
	n := 0
	for l := range t.links {
		n += t.wavelengthCount - t.FreeWavelengths(l)
	}
	return n
}

// VerifyOccupancy checks that the routed connections hold pairwise-disjoint
// paths and that the occupied trunks are exactly the union of those paths.
// Violations wrap ErrInvalidState, or ErrResourceConflict for a trunk held
// by two connections.
func (t *Topology) VerifyOccupancy(routed []*Connection) error {
	owner := make(map[*Trunk]uint64)
	for _, c := range routed {
		for _, tr := range c.path {
			if prev, taken := owner[tr]; taken {
				return fmt.Errorf("%w: trunk %v held by connections %d and %d", ErrResourceConflict, tr, prev, c.ID)
			}
			owner[tr] = c.ID
		}
	}
	for _, trunks := range t.links {
		for _, tr := range trunks {
			_, held := owner[tr]
			if tr.occupied && !held {
				return fmt.Errorf("%w: trunk %v occupied but owned by no routed connection", ErrInvalidState, tr)
			}
			if !tr.occupied && held {
				return fmt.Errorf("%w: trunk %v owned by connection %d but marked free", ErrInvalidState, tr, owner[tr])
			}
		}
	}
	return nil
}

// String renders the occupancy map, one row per wavelength, '#' for occupied.
func (t *Topology) String() string {
	var sb strings.Builder
	for w := 0; w < t.wavelengthCount; w++ {
		fmt.Fprintf(&sb, "w%-3d ", w)
		for l := range t.links {
			if t.links[l][w].occupied {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if w < t.wavelengthCount-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
