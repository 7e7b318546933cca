package wgpuhal

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// signalPoint is a HAL fence with its own monotonic counter. Each signal
// queues an empty submission that raises the fence to the next value once
// all earlier queue work finished.
type signalPoint struct {
	label string
	dev   *Device
	fence hal.Fence

	mu     sync.Mutex
	target uint64
}

func (p *signalPoint) signal() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.target + 1
	if err := p.dev.queue.Submit(nil, p.fence, next); err != nil {
		return fmt.Errorf("wgpuhal: signal %q: %w", p.label, err)
	}
	p.target = next
	return nil
}

// wait blocks until the last queued signal arrived. Without any signal it
// returns immediately.
func (p *signalPoint) wait() error {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()
	if target == 0 {
		return nil
	}
	return p.dev.waitFence(p.fence, target, p.label)
}

func (p *signalPoint) signaled() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Semaphore orders one submission after another. Waiting happens on the
// host before the waiting submission is handed to the queue.
//
// A semaphore only orders against a signal already submitted. Waiting on one
// that was never signaled returns immediately, so the signaling submission
// must be issued before the waiting one.
type Semaphore struct {
	signalPoint
}

func (s *Semaphore) SemaphoreLabel() string { return s.label }

// ResourceLabel lets a semaphore be released through Destroy.
func (s *Semaphore) ResourceLabel() string { return s.label }

// Fence is signaled when a submission completes and can be waited on from
// the host.
type Fence struct {
	signalPoint
}

func (f *Fence) FenceLabel() string { return f.label }

// ResourceLabel lets a fence be released through Destroy.
func (f *Fence) ResourceLabel() string { return f.label }

// Signaled returns how many submissions signaled the fence so far.
func (f *Fence) Signaled() uint64 { return f.signaled() }

// Wait blocks until the most recent submission signaling f completed.
func (f *Fence) Wait() error { return f.wait() }

// CreateSemaphore creates a semaphore for SubmitInfo.WaitSemaphore and
// SubmitInfo.SignalSemaphore.
func (d *Device) CreateSemaphore(label string) (*Semaphore, error) {
	f, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpuhal: create semaphore %q: %w", label, err)
	}
	return &Semaphore{signalPoint{label: label, dev: d, fence: f}}, nil
}

// CreateFence creates a fence for SubmitInfo.SignalFence.
func (d *Device) CreateFence(label string) (*Fence, error) {
	f, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpuhal: create fence %q: %w", label, err)
	}
	return &Fence{signalPoint{label: label, dev: d, fence: f}}, nil
}

// waitFence blocks until fence reaches value, one poll interval per HAL
// call, honoring the configured wait timeout.
func (d *Device) waitFence(fence hal.Fence, value uint64, what string) error {
	var deadline time.Time
	if d.opts.waitTimeout > 0 {
		deadline = time.Now().Add(d.opts.waitTimeout)
	}
	for {
		step := d.opts.pollInterval
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return fmt.Errorf("%w: %s at %d", ErrWaitTimeout, what, value)
			}
			step = min(step, left)
		}
		ok, err := d.device.Wait(fence, value, step)
		if err != nil {
			return fmt.Errorf("wgpuhal: wait %s at %d: %w", what, value, err)
		}
		if ok {
			return nil
		}
	}
}
