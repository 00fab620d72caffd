package app

import "errors"

// Synchronous-phase failures returned to the immediate caller. Anything
// that happens after a run start has been accepted is reported through the
// run's terminal state and the event stream instead.
var (
	// ErrConflict signals a run request for a task that already has a
	// pending or running run.
	ErrConflict = errors.New("task already has an active agent run")

	// ErrNotRunning signals a stop request against a run that is not in
	// the running state.
	ErrNotRunning = errors.New("agent run is not running")
)
