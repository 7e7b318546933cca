package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendergraph/backend"
	"github.com/gogpu/rendergraph/native"
)

var (
	_ native.Device        = (*Device)(nil)
	_ native.CommandBuffer = (*CommandBuffer)(nil)
	_ native.Semaphore     = (*Semaphore)(nil)
	_ native.Fence         = (*Fence)(nil)
	_ backend.Device       = (*Device)(nil)
)

func init() {
	backend.Register(backend.BackendNoop, func() (backend.Device, error) {
		return OpenNoop()
	})
}

// OpenNoop opens a device on the noop HAL API. Nothing executes and every
// submission completes immediately; it exercises the submission path
// without a GPU.
func OpenNoop(opts ...Option) (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpuhal: create noop instance: %w", err)
	}
	return openInstance(backend.BackendNoop, instance, opts)
}

// openInstance opens the first discrete or integrated adapter of instance,
// or the first adapter if there is neither. The returned device owns
// instance.
func openInstance(name string, instance hal.Instance, opts []Option) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapters
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpuhal: open adapter %q: %w", selected.Info.Name, err)
	}

	release := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	d, err := newDevice(name, openDev.Device, openDev.Queue, release, opts)
	if err != nil {
		release()
		return nil, err
	}
	d.logger().Info("wgpuhal: device opened", "backend", name, "adapter", selected.Info.Name)
	return d, nil
}
