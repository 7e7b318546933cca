package rendergraph

import "errors"

// Device errors.
var (
	// ErrClosed is returned by operations on a closed device, and by
	// submissions still queued when the device was closed.
	ErrClosed = errors.New("rendergraph: device closed")

	// ErrNilNative is returned by New when no native device is given.
	ErrNilNative = errors.New("rendergraph: native device is nil")

	// ErrNilGraph is returned by Submit for a nil render graph.
	ErrNilGraph = errors.New("rendergraph: render graph is nil")

	// ErrSyncWithoutSubmit is returned when a recording-only submission asks
	// for a semaphore, a fence or completion. Those only exist once work is
	// actually sent to the device.
	ErrSyncWithoutSubmit = errors.New("rendergraph: synchronization requested without device submission")
)
