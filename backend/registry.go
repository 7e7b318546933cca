package backend

import (
	"fmt"
	"slices"
	"sync"
)

// Factory opens a new native device.
type Factory func() (Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendHAL, BackendNoop}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens a device from the named backend.
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend: open %q: %w", name, err)
	}
	return dev, nil
}

// OpenDefault opens the first backend in priority order that succeeds,
// falling back to any other registered backend.
func OpenDefault() (Device, error) {
	registryMu.RLock()
	tried := make(map[string]bool, len(backends))
	var order []string
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			order = append(order, name)
			tried[name] = true
		}
	}
	for name := range backends {
		if !tried[name] {
			order = append(order, name)
		}
	}
	registryMu.RUnlock()

	var errs []error
	for _, name := range order {
		dev, err := Open(name)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errs[len(errs)-1])
}
