package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection_NormalizesEndpoints(t *testing.T) {
	c, err := NewConnection(9, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.StartNode)
	assert.Equal(t, 4, c.EndNode)
	assert.Equal(t, 3, c.Hops())
	assert.Equal(t, ConnectionPending, c.State)
	assert.False(t, c.HasRoute())
}

func TestNewConnection_RejectsIdenticalEndpoints(t *testing.T) {
	c, err := NewConnection(1, 2, 2)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestConnection_AcquireRelease_RoundTrip(t *testing.T) {
	// GIVEN a free path across three links
	topo, err := NewTopology(4, 2)
	require.NoError(t, err)
	path := []*Trunk{topo.Trunk(0, 1), topo.Trunk(1, 1), topo.Trunk(2, 1)}
	c, err := NewConnection(1, 0, 3)
	require.NoError(t, err)

	// WHEN the path is acquired
	require.NoError(t, c.Acquire(path))

	// THEN every trunk is occupied and the connection holds the path
	assert.True(t, c.HasRoute())
	assert.Equal(t, []int{1, 1, 1}, c.Wavelengths())
	for _, tr := range path {
		assert.True(t, tr.Occupied())
	}

	// WHEN released
	require.NoError(t, c.Release())

	// THEN every trunk is free again and the path is cleared
	for _, tr := range path {
		assert.False(t, tr.Occupied())
	}
	assert.Empty(t, c.Path())
	assert.Equal(t, ConnectionReleased, c.State)

	// THEN the same path can be acquired again
	require.NoError(t, c.Acquire(path))
	assert.Equal(t, 3, topo.OccupiedCount())
}

func TestConnection_Acquire_ConflictAcquiresNothing(t *testing.T) {
	// GIVEN a path whose last trunk is held by another connection
	topo, err := NewTopology(3, 1)
	require.NoError(t, err)
	other, _ := NewConnection(1, 1, 2)
	require.NoError(t, other.Acquire([]*Trunk{topo.Trunk(1, 0)}))
	c, _ := NewConnection(2, 0, 2)

	// WHEN acquiring it
	err = c.Acquire([]*Trunk{topo.Trunk(0, 0), topo.Trunk(1, 0)})

	// THEN a conflict is reported and the first trunk stays free
	assert.ErrorIs(t, err, ErrResourceConflict)
	assert.False(t, topo.Trunk(0, 0).Occupied())
	assert.Equal(t, ConnectionPending, c.State)
}

func TestConnection_Acquire_RejectsMalformedPath(t *testing.T) {
	topo, err := NewTopology(4, 2)
	require.NoError(t, err)

	tests := []struct {
		name string
		path []*Trunk
	}{
		{"too short", []*Trunk{topo.Trunk(0, 0)}},
		{"wrong links", []*Trunk{topo.Trunk(1, 0), topo.Trunk(2, 0)}},
		{"out of order", []*Trunk{topo.Trunk(1, 0), topo.Trunk(0, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := NewConnection(1, 0, 2)
			assert.ErrorIs(t, c.Acquire(tt.path), ErrInvalidState)
			assert.Equal(t, 0, topo.OccupiedCount())
		})
	}
}

func TestConnection_Acquire_TwiceIsInvalid(t *testing.T) {
	topo, _ := NewTopology(2, 2)
	c, _ := NewConnection(1, 0, 1)
	require.NoError(t, c.Acquire([]*Trunk{topo.Trunk(0, 0)}))
	assert.ErrorIs(t, c.Acquire([]*Trunk{topo.Trunk(0, 1)}), ErrInvalidState)
}

func TestConnection_Release_WithoutAcquireIsInvalid(t *testing.T) {
	c, _ := NewConnection(1, 0, 1)
	assert.ErrorIs(t, c.Release(), ErrInvalidState)

	require.NoError(t, c.MarkBlocked())
	assert.ErrorIs(t, c.Release(), ErrInvalidState)
}

func TestConnection_MarkBlocked_OnlyFromPending(t *testing.T) {
	topo, _ := NewTopology(2, 1)
	c, _ := NewConnection(1, 0, 1)
	require.NoError(t, c.Acquire([]*Trunk{topo.Trunk(0, 0)}))
	assert.ErrorIs(t, c.MarkBlocked(), ErrInvalidState)
}
