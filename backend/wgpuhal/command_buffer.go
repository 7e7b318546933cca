package wgpuhal

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/native"
)

// CommandBuffer records render graph commands through a HAL command encoder.
//
// Every Begin opens a fresh encoder; End turns it into a HAL command buffer
// that stays alive until Reset, which runs once the GPU finished with it.
type CommandBuffer struct {
	dev   *Device
	label string

	encoder hal.CommandEncoder
	raw     hal.CommandBuffer

	recorded int
}

// Label returns the debug label.
func (b *CommandBuffer) Label() string { return b.label }

// Recorded returns the number of commands recorded since the last Reset.
func (b *CommandBuffer) Recorded() int { return b.recorded }

func (b *CommandBuffer) Begin() error {
	if b.encoder != nil || b.raw != nil {
		return fmt.Errorf("wgpuhal: begin %q: command buffer not reset", b.label)
	}
	enc, err := b.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: b.label})
	if err != nil {
		return fmt.Errorf("wgpuhal: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(b.label); err != nil {
		return fmt.Errorf("wgpuhal: begin encoding: %w", err)
	}
	b.encoder = enc
	return nil
}

func (b *CommandBuffer) Record(cmd native.Command) error {
	if b.encoder == nil {
		return ErrNotRecording
	}
	switch c := cmd.(type) {
	case native.CopyBuffer:
		src, ok := c.Src.(*Buffer)
		if !ok {
			return fmt.Errorf("%w: copy source %T", ErrForeignObject, c.Src)
		}
		dst, ok := c.Dst.(*Buffer)
		if !ok {
			return fmt.Errorf("%w: copy destination %T", ErrForeignObject, c.Dst)
		}
		b.encoder.CopyBufferToBuffer(src.raw, dst.raw, []hal.BufferCopy{{
			SrcOffset: c.SrcOffset,
			DstOffset: c.DstOffset,
			Size:      c.Size,
		}})
	case native.Dispatch:
		pipeline, ok := c.Pipeline.(*ComputePipeline)
		if !ok {
			return fmt.Errorf("%w: pipeline %T", ErrForeignObject, c.Pipeline)
		}
		pass := b.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: pipeline.label})
		pass.SetPipeline(pipeline.raw)
		if c.BindGroup != nil {
			bg, ok := c.BindGroup.(*BindGroup)
			if !ok {
				pass.End()
				return fmt.Errorf("%w: bind group %T", ErrForeignObject, c.BindGroup)
			}
			pass.SetBindGroup(0, bg.raw, nil)
		}
		pass.Dispatch(c.X, c.Y, c.Z)
		pass.End()
	case native.Marker:
		// HAL encoders carry no debug markers.
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.CommandName())
	}
	b.recorded++
	return nil
}

func (b *CommandBuffer) End() error {
	if b.encoder == nil {
		return ErrNotRecording
	}
	raw, err := b.encoder.EndEncoding()
	b.encoder = nil
	if err != nil {
		return fmt.Errorf("wgpuhal: end encoding: %w", err)
	}
	b.raw = raw
	return nil
}

func (b *CommandBuffer) Reset() {
	if b.encoder != nil {
		b.encoder.DiscardEncoding()
		b.encoder = nil
	}
	if b.raw != nil {
		b.dev.device.FreeCommandBuffer(b.raw)
		b.raw = nil
	}
	b.recorded = 0
}
