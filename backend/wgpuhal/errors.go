package wgpuhal

import "errors"

var (
	// ErrNilDevice is returned when a nil hal.Device or hal.Queue is given.
	ErrNilDevice = errors.New("wgpuhal: nil HAL device or queue")

	// ErrNoAdapters is returned when the HAL instance enumerates no adapters.
	ErrNoAdapters = errors.New("wgpuhal: no adapters found")

	// ErrProviderNotHAL is returned by NewFromProvider when the provider does
	// not expose HAL types.
	ErrProviderNotHAL = errors.New("wgpuhal: provider does not expose HAL device and queue")

	// ErrForeignObject is returned when a command buffer, semaphore, fence or
	// resource was not created by this package.
	ErrForeignObject = errors.New("wgpuhal: object not created by wgpuhal")

	// ErrUnsupportedCommand is returned by Record for command types the HAL
	// backend cannot encode.
	ErrUnsupportedCommand = errors.New("wgpuhal: unsupported command")

	// ErrNotRecording is returned when a command buffer is used outside
	// Begin/End.
	ErrNotRecording = errors.New("wgpuhal: command buffer is not recording")

	// ErrNotSubmitted is returned when waiting for a timeline value that was
	// never submitted.
	ErrNotSubmitted = errors.New("wgpuhal: timeline value not submitted")

	// ErrWaitTimeout is returned when a wait exceeds the configured timeout.
	ErrWaitTimeout = errors.New("wgpuhal: wait timed out")
)
