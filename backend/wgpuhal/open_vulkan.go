//go:build !nogpu

package wgpuhal

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/rendergraph/backend"
)

func init() {
	backend.Register(backend.BackendHAL, func() (backend.Device, error) {
		return OpenVulkan()
	})
}

// OpenVulkan opens a standalone device on the Vulkan HAL.
func OpenVulkan(opts ...Option) (*Device, error) {
	api, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, errors.New("wgpuhal: vulkan backend not available")
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpuhal: create vulkan instance: %w", err)
	}
	return openInstance(backend.BackendHAL, instance, opts)
}
