package wgpuhal

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/native"
)

// Device implements native.Device on a HAL device and queue.
type Device struct {
	name   string
	opts   options
	device hal.Device
	queue  hal.Queue
	log    atomic.Pointer[slog.Logger]

	// timeline is signaled with each submission's timeline value.
	timeline hal.Fence

	// release tears down what the package created to open the device.
	// Nil for wrapped devices.
	release func()

	mu sync.Mutex
	// pending holds submitted values not yet seen complete, ascending.
	pending       []uint64
	lastSubmitted uint64
	completed     uint64
	nextBuffer    int
	closed        bool
}

// New wraps an existing HAL device and queue. The caller keeps ownership of
// both; Close only releases objects created by the Device.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	return newDevice("hal", device, queue, nil, opts)
}

// NewFromProvider wraps the HAL device of a gpucontext.DeviceProvider. The
// provider must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrProviderNotHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrProviderNotHAL, hp.HalQueue())
	}
	return newDevice("provider", device, queue, nil, opts)
}

func newDevice(name string, device hal.Device, queue hal.Queue, release func(), opts []Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpuhal: create timeline fence: %w", err)
	}
	d := &Device{
		name:     name,
		opts:     o,
		device:   device,
		queue:    queue,
		timeline: fence,
		release:  release,
	}
	d.SetLogger(nil)
	return d, nil
}

// Name returns the backend name the device was opened with.
func (d *Device) Name() string { return d.name }

// HalDevice returns the underlying HAL device.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the underlying HAL queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

func (d *Device) AllocateCommandBuffers(n int) ([]native.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("wgpuhal: allocate on closed device %q", d.opts.label)
	}
	out := make([]native.CommandBuffer, n)
	for i := range out {
		d.nextBuffer++
		out[i] = &CommandBuffer{
			dev:   d,
			label: fmt.Sprintf("%s-cmd-%d", d.opts.label, d.nextBuffer),
		}
	}
	d.logger().Debug("wgpuhal: allocated command buffers", "count", n, "total", d.nextBuffer)
	return out, nil
}

func (d *Device) FreeCommandBuffers(buffers []native.CommandBuffer) {
	for _, cb := range buffers {
		if b, ok := cb.(*CommandBuffer); ok {
			b.Reset()
		}
	}
}

func (d *Device) Submit(info *native.SubmitInfo) error {
	buffers := make([]hal.CommandBuffer, 0, len(info.CommandBuffers))
	for _, cb := range info.CommandBuffers {
		b, ok := cb.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: command buffer %T", ErrForeignObject, cb)
		}
		if b.raw == nil {
			return fmt.Errorf("wgpuhal: submit %q: %w", b.label, ErrNotRecording)
		}
		buffers = append(buffers, b.raw)
	}

	// Every object is checked before anything reaches the queue, so a
	// rejected submit leaves the device untouched.
	var waitSem, signalSem *Semaphore
	var signalFence *Fence
	if info.WaitSemaphore != nil {
		s, ok := info.WaitSemaphore.(*Semaphore)
		if !ok {
			return fmt.Errorf("%w: semaphore %T", ErrForeignObject, info.WaitSemaphore)
		}
		waitSem = s
	}
	if info.SignalSemaphore != nil {
		s, ok := info.SignalSemaphore.(*Semaphore)
		if !ok {
			return fmt.Errorf("%w: semaphore %T", ErrForeignObject, info.SignalSemaphore)
		}
		signalSem = s
	}
	if info.SignalFence != nil {
		f, ok := info.SignalFence.(*Fence)
		if !ok {
			return fmt.Errorf("%w: fence %T", ErrForeignObject, info.SignalFence)
		}
		signalFence = f
	}

	if waitSem != nil {
		if err := waitSem.wait(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	if info.TimelineValue <= d.lastSubmitted {
		d.mu.Unlock()
		return fmt.Errorf("wgpuhal: timeline value %d not above %d", info.TimelineValue, d.lastSubmitted)
	}
	if err := d.queue.Submit(buffers, d.timeline, info.TimelineValue); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("wgpuhal: queue submit: %w", err)
	}
	d.lastSubmitted = info.TimelineValue
	d.pending = append(d.pending, info.TimelineValue)
	d.mu.Unlock()

	if signalSem != nil {
		if err := signalSem.signal(); err != nil {
			return err
		}
	}
	if signalFence != nil {
		if err := signalFence.signal(); err != nil {
			return err
		}
	}
	return nil
}

// CompletedValue polls the timeline fence for every pending value without
// blocking.
func (d *Device) CompletedValue() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.pending) > 0 {
		v := d.pending[0]
		ok, err := d.device.Wait(d.timeline, v, 0)
		if err != nil {
			return d.completed, fmt.Errorf("wgpuhal: poll timeline %d: %w", v, err)
		}
		if !ok {
			break
		}
		d.completeLocked(v)
	}
	return d.completed, nil
}

func (d *Device) WaitValue(value uint64) error {
	d.mu.Lock()
	if value <= d.completed {
		d.mu.Unlock()
		return nil
	}
	if value > d.lastSubmitted {
		last := d.lastSubmitted
		d.mu.Unlock()
		return fmt.Errorf("%w: %d (last %d)", ErrNotSubmitted, value, last)
	}
	d.mu.Unlock()

	if err := d.waitFence(d.timeline, value, "timeline"); err != nil {
		return err
	}
	d.mu.Lock()
	d.completeLocked(value)
	d.mu.Unlock()
	return nil
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	last := d.lastSubmitted
	d.mu.Unlock()
	if last == 0 {
		return nil
	}
	return d.WaitValue(last)
}

func (d *Device) completeLocked(v uint64) {
	if v > d.completed {
		d.completed = v
	}
	i := 0
	for i < len(d.pending) && d.pending[i] <= d.completed {
		i++
	}
	d.pending = d.pending[i:]
}

// Destroy releases a resource created or wrapped by this package.
func (d *Device) Destroy(r native.Resource) {
	switch res := r.(type) {
	case *Buffer:
		d.device.DestroyBuffer(res.raw)
	case *Texture:
		d.device.DestroyTexture(res.raw)
	case *TextureView:
		d.device.DestroyTextureView(res.raw)
	case *BindGroup:
		d.device.DestroyBindGroup(res.raw)
	case *ComputePipeline:
		d.device.DestroyComputePipeline(res.raw)
	case *Semaphore:
		d.device.DestroyFence(res.fence)
	case *Fence:
		d.device.DestroyFence(res.fence)
	default:
		d.logger().Warn("wgpuhal: cannot destroy foreign resource",
			"type", fmt.Sprintf("%T", r),
			"label", r.ResourceLabel())
	}
}

// Close releases the timeline fence and, for devices opened through the
// backend registry, the HAL device and instance. The caller must have
// closed the rendergraph.Device using it.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.device.DestroyFence(d.timeline)
	if d.release != nil {
		d.release()
	}
	d.logger().Info("wgpuhal: device closed", "backend", d.name)
	return nil
}
