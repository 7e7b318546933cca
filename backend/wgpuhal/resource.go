package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a HAL buffer usable as a render graph resource.
type Buffer struct {
	label string
	raw   hal.Buffer
	size  uint64
}

// WrapBuffer adopts a buffer created elsewhere on the same device.
func WrapBuffer(label string, raw hal.Buffer, size uint64) *Buffer {
	return &Buffer{label: label, raw: raw, size: size}
}

func (b *Buffer) ResourceLabel() string { return b.label }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Raw returns the underlying HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Texture is a HAL texture usable as a render graph resource.
type Texture struct {
	label string
	raw   hal.Texture
}

// WrapTexture adopts a texture created elsewhere on the same device.
func WrapTexture(label string, raw hal.Texture) *Texture {
	return &Texture{label: label, raw: raw}
}

func (t *Texture) ResourceLabel() string { return t.label }

// TextureView is a HAL texture view.
type TextureView struct {
	label string
	raw   hal.TextureView
}

// WrapTextureView adopts a texture view created elsewhere on the same device.
func WrapTextureView(label string, raw hal.TextureView) *TextureView {
	return &TextureView{label: label, raw: raw}
}

func (v *TextureView) ResourceLabel() string { return v.label }

// BindGroup is a HAL bind group bound at index 0 by Dispatch.
type BindGroup struct {
	label string
	raw   hal.BindGroup
}

// WrapBindGroup adopts a bind group created elsewhere on the same device.
func WrapBindGroup(label string, raw hal.BindGroup) *BindGroup {
	return &BindGroup{label: label, raw: raw}
}

func (g *BindGroup) ResourceLabel() string { return g.label }

// ComputePipeline is a HAL compute pipeline used by Dispatch.
type ComputePipeline struct {
	label string
	raw   hal.ComputePipeline
}

// WrapComputePipeline adopts a pipeline created elsewhere on the same device.
func WrapComputePipeline(label string, raw hal.ComputePipeline) *ComputePipeline {
	return &ComputePipeline{label: label, raw: raw}
}

func (p *ComputePipeline) ResourceLabel() string { return p.label }

// CreateBuffer creates a buffer owned by the caller. Hand it to a
// discard.Pool, or to Destroy once the GPU no longer uses it.
func (d *Device) CreateBuffer(label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpuhal: create buffer %q: %w", label, err)
	}
	return &Buffer{label: label, raw: raw, size: size}, nil
}
