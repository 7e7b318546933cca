// Package native defines the contract between the submission core and a
// native graphics API.
//
// The submission core never talks to a graphics API directly. Everything it
// needs from the device (command buffer allocation, recording, queue
// submission with a timeline signal, timeline waits and deferred resource
// destruction) goes through the interfaces in this package. backend/wgpuhal
// implements them on top of gogpu/wgpu/hal; tests implement them with mocks.
//
// Threading: the submission runner is the only goroutine that records into
// command buffers and calls Submit. WaitValue and CompletedValue may be called
// from any goroutine.
package native

// Device is the native device the submission core drives.
type Device interface {
	// AllocateCommandBuffers allocates n fresh command buffers in the initial
	// (not recording) state.
	AllocateCommandBuffers(n int) ([]CommandBuffer, error)

	// FreeCommandBuffers releases command buffers back to the device. The
	// caller guarantees none of them is still referenced by the GPU.
	FreeCommandBuffers(buffers []CommandBuffer)

	// Submit issues one queue submission covering all command buffers in info,
	// in order, and signals the device timeline with info.TimelineValue.
	Submit(info *SubmitInfo) error

	// CompletedValue returns the highest timeline value the device has
	// finished. It never blocks.
	CompletedValue() (uint64, error)

	// WaitValue blocks until the device timeline reaches value.
	WaitValue(value uint64) error

	// WaitIdle blocks until all submitted work has finished.
	WaitIdle() error

	// Destroy releases a resource. Called only once the GPU no longer
	// references it.
	Destroy(r Resource)
}

// CommandBuffer is a reusable native command recording handle.
//
// State machine:
//
//	Initial   -> Begin() -> Recording
//	Recording -> Record() -> Recording
//	Recording -> End()    -> Executable
//	any       -> Reset()  -> Initial
type CommandBuffer interface {
	Begin() error
	Record(cmd Command) error
	End() error
	Reset()
}

// Resource is any GPU object whose destruction must be deferred until the
// device finished using it (buffers, texture views, bind groups, ...).
type Resource interface {
	// ResourceLabel returns a debug label.
	ResourceLabel() string
}

// Semaphore is a GPU-GPU synchronization primitive provided by the backend.
type Semaphore interface {
	SemaphoreLabel() string
}

// Fence is a GPU-CPU synchronization primitive provided by the backend.
type Fence interface {
	FenceLabel() string
}

// SubmitInfo describes a single native queue submission.
type SubmitInfo struct {
	// CommandBuffers are executed in slice order.
	CommandBuffers []CommandBuffer

	// WaitSemaphore, if non-nil, must be signaled before WaitStage executes.
	WaitSemaphore Semaphore
	WaitStage     PipelineStage

	// TimelineValue is signaled on the device timeline once all command
	// buffers completed.
	TimelineValue uint64

	// SignalSemaphore and SignalFence are optional extra signals.
	SignalSemaphore Semaphore
	SignalFence     Fence
}
