package sim

import "errors"

// Sentinel errors returned by the simulation core. Callers match them with
// errors.Is; every returned error wraps exactly one of these.
var (
	// ErrInvalidConfiguration reports malformed topology, traffic or policy
	// parameters. It is detected before any simulation work starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrResourceConflict reports an attempt to acquire a trunk that is
	// already occupied. Under a correct Director this never happens.
	ErrResourceConflict = errors.New("resource conflict")

	// ErrInvalidState reports corrupted bookkeeping: releasing an unrouted
	// connection, a drained event queue, or time moving backwards.
	ErrInvalidState = errors.New("invalid state")
)
