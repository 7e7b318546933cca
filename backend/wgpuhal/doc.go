// Package wgpuhal implements native.Device on a gogpu/wgpu HAL device.
//
// The HAL exposes binary fences with a monotonic value instead of timeline
// semaphores, so the device timeline is one hal.Fence signaled with each
// submission's timeline value. Semaphores and fences handed to Submit are
// emulated the same way: each is a HAL fence with its own counter.
//
// Semaphore waits happen on the host at submit time and cover only signals
// already submitted. A wait on a semaphore nobody has signaled yet does not
// block, unlike a binary semaphore on a native queue.
//
// Importing the package registers two backends:
//
//	backend.BackendNoop  noop HAL API, completes every submission immediately
//	backend.BackendHAL   Vulkan HAL (not built with the nogpu tag)
//
// Devices can also wrap an existing hal.Device and hal.Queue with New, or a
// gpucontext.DeviceProvider exposing HAL types with NewFromProvider.
package wgpuhal
