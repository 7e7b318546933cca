package graph

import (
	"fmt"

	"github.com/gogpu/rendergraph/native"
)

// Builder serializes render graphs into native command buffers.
// It is owned by the submission runner and not safe for concurrent use.
type Builder struct {
	scheduler Scheduler
}

// Build schedules every node of g and records it into cb, which must be in
// the recording state. Returns the number of recorded nodes.
func (b *Builder) Build(g *RenderGraph, cb native.CommandBuffer) (int, error) {
	order, err := b.scheduler.Schedule(g)
	if err != nil {
		return 0, err
	}
	for i, id := range order {
		n := g.nodes[id]
		if err := cb.Record(n.Command); err != nil {
			return i, fmt.Errorf("graph: record node %d %q (%s): %w", id, n.Label, n.Command.CommandName(), err)
		}
	}
	return len(order), nil
}
