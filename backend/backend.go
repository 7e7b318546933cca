package backend

import (
	"errors"

	"github.com/gogpu/rendergraph/native"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendNoop is the wgpu HAL backend on the noop API. It executes
	// nothing and completes every submission immediately.
	BackendNoop = "noop"
	// BackendHAL is the wgpu HAL backend on the platform's native API.
	BackendHAL = "hal"
)

// Device is a native device opened through the registry. The caller owns it
// and must Close it after the rendergraph.Device using it was closed.
type Device interface {
	native.Device

	// Name returns the backend identifier (e.g., "noop").
	Name() string

	// Close releases the native device and everything the backend created
	// to open it.
	Close() error
}
