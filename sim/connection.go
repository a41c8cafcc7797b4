package sim

import (
	"fmt"
	"strings"
)

// ConnectionState tracks a connection through its lifecycle:
// pending → routed → released, or pending → blocked.
type ConnectionState string

const (
	ConnectionPending  ConnectionState = "pending"
	ConnectionRouted   ConnectionState = "routed"
	ConnectionBlocked  ConnectionState = "blocked"
	ConnectionReleased ConnectionState = "released"
)

// Connection is a demand between two nodes. Once routed it owns one trunk on
// every link between StartNode and EndNode.
type Connection struct {
	ID        uint64
	StartNode int // always < EndNode
	EndNode   int
	State     ConnectionState
	path      []*Trunk
}

// NewConnection creates a pending connection, normalizing the endpoints so
// that StartNode < EndNode. Identical endpoints are rejected.
func NewConnection(id uint64, a, b int) (*Connection, error) {
	if a == b {
		return nil, fmt.Errorf("%w: connection endpoints must differ, both are %d", ErrInvalidConfiguration, a)
	}
	if a < 0 || b < 0 {
		return nil, fmt.Errorf("%w: negative connection endpoint (%d, %d)", ErrInvalidConfiguration, a, b)
	}
	return &Connection{
		ID:        id,
		StartNode: min(a, b),
		EndNode:   max(a, b),
		State:     ConnectionPending,
	}, nil
}

// Hops returns the number of links the connection traverses.
func (c *Connection) Hops() int {
	return c.EndNode - c.StartNode
}

// Path returns the trunks held by a routed connection, ordered by link.
// The slice must not be modified.
func (c *Connection) Path() []*Trunk {
	return c.path
}

// HasRoute reports whether the connection currently holds a path.
func (c *Connection) HasRoute() bool {
	return c.State == ConnectionRouted
}

// Wavelengths returns the wavelength used on each traversed link.
func (c *Connection) Wavelengths() []int {
	ws := make([]int, len(c.path))
	for i, tr := range c.path {
		ws[i] = tr.wavelength
	}
	return ws
}

// Acquire occupies every trunk in path and stores it. The path must hold one
// trunk per link from StartNode to EndNode-1 in order. If any trunk is
// already occupied nothing is acquired and the error wraps
// ErrResourceConflict.
func (c *Connection) Acquire(path []*Trunk) error {
	if c.State != ConnectionPending && c.State != ConnectionReleased {
		return fmt.Errorf("%w: connection %d cannot acquire a path while %s", ErrInvalidState, c.ID, c.State)
	}
	if len(path) != c.Hops() {
		return fmt.Errorf("%w: connection %d spans %d links, path has %d trunks", ErrInvalidState, c.ID, c.Hops(), len(path))
	}
	for i, tr := range path {
		if tr.link != c.StartNode+i {
			return fmt.Errorf("%w: connection %d path position %d is on link %d, want %d", ErrInvalidState, c.ID, i, tr.link, c.StartNode+i)
		}
		if tr.occupied {
			return fmt.Errorf("%w: connection %d: trunk %v already occupied", ErrResourceConflict, c.ID, tr)
		}
	}
	for _, tr := range path {
		tr.occupied = true
	}
	c.path = path
	c.State = ConnectionRouted
	return nil
}

// Release frees every trunk held by the connection and clears its path.
// Releasing a connection that never acquired a path wraps ErrInvalidState.
func (c *Connection) Release() error {
	if c.State != ConnectionRouted {
		return fmt.Errorf("%w: releasing connection %d in state %s", ErrInvalidState, c.ID, c.State)
	}
	for _, tr := range c.path {
		if !tr.occupied {
			return fmt.Errorf("%w: connection %d releasing unoccupied trunk %v", ErrInvalidState, c.ID, tr)
		}
	}
	for _, tr := range c.path {
		tr.occupied = false
	}
	c.path = nil
	c.State = ConnectionReleased
	return nil
}

// MarkBlocked records a routing failure. Only pending connections can block.
func (c *Connection) MarkBlocked() error {
	if c.State != ConnectionPending {
		return fmt.Errorf("%w: blocking connection %d in state %s", ErrInvalidState, c.ID, c.State)
	}
	c.State = ConnectionBlocked
	return nil
}

func (c *Connection) String() string {
	if len(c.path) == 0 {
		return fmt.Sprintf("conn %d %d->%d [%s]", c.ID, c.StartNode, c.EndNode, c.State)
	}
	parts := make([]string, len(c.path))
	for i, tr := range c.path {
		parts[i] = tr.String()
	}
	return fmt.Sprintf("conn %d %d->%d [%s]", c.ID, c.StartNode, c.EndNode, strings.Join(parts, " "))
}
