package wgpuhal

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendergraph/native"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	d, err := New(device, queue, WithLabel("test"), WithPollInterval(5*time.Millisecond), WithWaitTimeout(time.Second))
	if err != nil {
		cleanup()
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
		cleanup()
	})
	return d
}

func newTestBuffer(t *testing.T, d *Device, label string) *Buffer {
	t.Helper()
	b, err := d.CreateBuffer(label, 256, gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer(%q) error = %v", label, err)
	}
	return b
}

// recordCopy returns an ended command buffer holding one copy.
func recordCopy(t *testing.T, d *Device) native.CommandBuffer {
	t.Helper()
	buffers, err := d.AllocateCommandBuffers(1)
	if err != nil {
		t.Fatal(err)
	}
	cb := buffers[0]
	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	src, dst := newTestBuffer(t, d, "src"), newTestBuffer(t, d, "dst")
	if err := cb.Record(native.CopyBuffer{Src: src, Dst: dst, Size: 256}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	return cb
}

type clearCommand struct{}

func (clearCommand) CommandName() string { return "clear" }

type foreignResource struct{}

func (foreignResource) ResourceLabel() string { return "foreign" }

func TestNew_NilDevice(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil, nil) error = %v, want %v", err, ErrNilDevice)
	}
}

func TestOpenNoop(t *testing.T) {
	d, err := OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop() error = %v", err)
	}
	if d.Name() != "noop" {
		t.Errorf("Name() = %q, want %q", d.Name(), "noop")
	}
	if d.HalDevice() == nil || d.HalQueue() == nil {
		t.Error("HalDevice() or HalQueue() is nil")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := d.AllocateCommandBuffers(1); err == nil {
		t.Error("AllocateCommandBuffers on closed device = nil error")
	}
}

// halProvider embeds the interface for the methods the tests never call.
type halProvider struct {
	gpucontext.DeviceProvider
	device hal.Device
	queue  hal.Queue
}

func (p *halProvider) HalDevice() any { return p.device }
func (p *halProvider) HalQueue() any  { return p.queue }

type plainProvider struct {
	gpucontext.DeviceProvider
}

func TestNewFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := NewFromProvider(&halProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	if d.HalDevice() != device {
		t.Error("NewFromProvider did not use the provider's HAL device")
	}
	_ = d.Close()

	if _, err := NewFromProvider(&plainProvider{}); !errors.Is(err, ErrProviderNotHAL) {
		t.Errorf("NewFromProvider(plain) error = %v, want %v", err, ErrProviderNotHAL)
	}
	if _, err := NewFromProvider(&halProvider{}); !errors.Is(err, ErrProviderNotHAL) {
		t.Errorf("NewFromProvider(nil HAL) error = %v, want %v", err, ErrProviderNotHAL)
	}
}

func TestCommandBuffer_Recording(t *testing.T) {
	d := newTestDevice(t)
	buffers, err := d.AllocateCommandBuffers(2)
	if err != nil {
		t.Fatalf("AllocateCommandBuffers() error = %v", err)
	}
	if len(buffers) != 2 {
		t.Fatalf("AllocateCommandBuffers(2) returned %d", len(buffers))
	}
	cb := buffers[0].(*CommandBuffer)
	if cb.Label() == buffers[1].(*CommandBuffer).Label() {
		t.Errorf("command buffers share label %q", cb.Label())
	}

	if err := cb.Record(native.Marker{Label: "early"}); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Record before Begin error = %v, want %v", err, ErrNotRecording)
	}
	if err := cb.End(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("End before Begin error = %v, want %v", err, ErrNotRecording)
	}

	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	src, dst := newTestBuffer(t, d, "src"), newTestBuffer(t, d, "dst")
	tests := []struct {
		name    string
		cmd     native.Command
		wantErr error
	}{
		{"copy", native.CopyBuffer{Src: src, Dst: dst, Size: 64}, nil},
		{"marker", native.Marker{Label: "frame"}, nil},
		{"unsupported", clearCommand{}, ErrUnsupportedCommand},
		{"foreign source", native.CopyBuffer{Src: foreignResource{}, Dst: dst, Size: 64}, ErrForeignObject},
		{"foreign pipeline", native.Dispatch{Pipeline: foreignResource{}, X: 1, Y: 1, Z: 1}, ErrForeignObject},
	}
	for _, tt := range tests {
		err := cb.Record(tt.cmd)
		if tt.wantErr == nil && err != nil {
			t.Errorf("Record(%s) error = %v", tt.name, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("Record(%s) error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
	if cb.Recorded() != 2 {
		t.Errorf("Recorded() = %d, want 2", cb.Recorded())
	}

	if err := cb.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := cb.Begin(); err == nil {
		t.Error("Begin() on an ended buffer = nil, want error")
	}

	cb.Reset()
	if cb.Recorded() != 0 {
		t.Errorf("Recorded() after Reset = %d, want 0", cb.Recorded())
	}
	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() after Reset error = %v", err)
	}
	cb.Reset()
	d.FreeCommandBuffers(buffers)
}

func TestSubmit_TimelineCompletes(t *testing.T) {
	d := newTestDevice(t)

	for v := uint64(1); v <= 3; v++ {
		if err := d.Submit(&native.SubmitInfo{
			CommandBuffers: []native.CommandBuffer{recordCopy(t, d)},
			TimelineValue:  v,
		}); err != nil {
			t.Fatalf("Submit(%d) error = %v", v, err)
		}
	}

	if err := d.WaitValue(2); err != nil {
		t.Fatalf("WaitValue(2) error = %v", err)
	}
	got, err := d.CompletedValue()
	if err != nil {
		t.Fatalf("CompletedValue() error = %v", err)
	}
	if got < 2 {
		t.Errorf("CompletedValue() = %d, want >= 2", got)
	}

	if err := d.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
	if got, _ := d.CompletedValue(); got != 3 {
		t.Errorf("CompletedValue() after WaitIdle = %d, want 3", got)
	}

	if err := d.Submit(&native.SubmitInfo{
		CommandBuffers: []native.CommandBuffer{recordCopy(t, d)},
		TimelineValue:  3,
	}); err == nil {
		t.Error("Submit with a repeated timeline value = nil, want error")
	}
	if err := d.WaitValue(10); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("WaitValue(10) error = %v, want %v", err, ErrNotSubmitted)
	}
}

func TestSubmit_RejectsUnendedBuffer(t *testing.T) {
	d := newTestDevice(t)
	buffers, _ := d.AllocateCommandBuffers(1)
	if err := d.Submit(&native.SubmitInfo{CommandBuffers: buffers, TimelineValue: 1}); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Submit(unended) error = %v, want %v", err, ErrNotRecording)
	}
}

func TestSubmit_SemaphoreAndFence(t *testing.T) {
	d := newTestDevice(t)

	sem, err := d.CreateSemaphore("present")
	if err != nil {
		t.Fatal(err)
	}
	fence, err := d.CreateFence("frame")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Destroy(sem)
	defer d.Destroy(fence)

	if err := d.Submit(&native.SubmitInfo{
		CommandBuffers:  []native.CommandBuffer{recordCopy(t, d)},
		TimelineValue:   1,
		SignalSemaphore: sem,
		SignalFence:     fence,
	}); err != nil {
		t.Fatalf("Submit(signal) error = %v", err)
	}
	if fence.Signaled() != 1 {
		t.Errorf("Signaled() = %d, want 1", fence.Signaled())
	}
	if err := fence.Wait(); err != nil {
		t.Errorf("fence.Wait() error = %v", err)
	}

	if err := d.Submit(&native.SubmitInfo{
		CommandBuffers: []native.CommandBuffer{recordCopy(t, d)},
		TimelineValue:  2,
		WaitSemaphore:  sem,
		WaitStage:      native.StageTransfer,
	}); err != nil {
		t.Fatalf("Submit(wait) error = %v", err)
	}
}

func TestSubmit_WaitOnUnsignaledSemaphoreDoesNotBlock(t *testing.T) {
	d := newTestDevice(t)
	sem, err := d.CreateSemaphore("never-signaled")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Destroy(sem)

	cb := recordCopy(t, d)
	done := make(chan error, 1)
	go func() {
		done <- d.Submit(&native.SubmitInfo{
			CommandBuffers: []native.CommandBuffer{cb},
			TimelineValue:  1,
			WaitSemaphore:  sem,
			WaitStage:      native.StageTransfer,
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit() blocked on a semaphore nobody signaled")
	}
	if got := sem.signaled(); got != 0 {
		t.Errorf("signaled() = %d, want 0", got)
	}
}

type foreignFence struct{}

func (foreignFence) FenceLabel() string { return "foreign" }

type foreignSemaphore struct{}

func (foreignSemaphore) SemaphoreLabel() string { return "foreign" }

func TestSubmit_ForeignSyncObjectQueuesNothing(t *testing.T) {
	d := newTestDevice(t)
	tests := []struct {
		name string
		info native.SubmitInfo
	}{
		{"signal fence", native.SubmitInfo{SignalFence: foreignFence{}}},
		{"signal semaphore", native.SubmitInfo{SignalSemaphore: foreignSemaphore{}}},
		{"wait semaphore", native.SubmitInfo{WaitSemaphore: foreignSemaphore{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.info
			info.CommandBuffers = []native.CommandBuffer{recordCopy(t, d)}
			info.TimelineValue = 1
			if err := d.Submit(&info); !errors.Is(err, ErrForeignObject) {
				t.Fatalf("Submit() error = %v, want %v", err, ErrForeignObject)
			}
			d.mu.Lock()
			last, pending := d.lastSubmitted, len(d.pending)
			d.mu.Unlock()
			if last != 0 || pending != 0 {
				t.Errorf("lastSubmitted, pending = %d, %d after rejected submit, want 0, 0", last, pending)
			}
			info.CommandBuffers[0].Reset()
		})
	}

	// The same value is still free for a valid submit.
	if err := d.Submit(&native.SubmitInfo{
		CommandBuffers: []native.CommandBuffer{recordCopy(t, d)},
		TimelineValue:  1,
	}); err != nil {
		t.Fatalf("Submit() after rejections error = %v", err)
	}
}

func TestDestroy(t *testing.T) {
	d := newTestDevice(t)
	d.Destroy(newTestBuffer(t, d, "scratch"))
	// Foreign resources are logged and skipped.
	d.Destroy(foreignResource{})
}
