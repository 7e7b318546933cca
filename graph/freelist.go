package graph

import "github.com/gogpu/rendergraph/internal/queue"

// FreeList recycles render graphs. Producers take graphs from it and both
// producers (empty-graph fast path) and the submission runner return them,
// so it is safe for concurrent use.
type FreeList struct {
	graphs *queue.Queue[*RenderGraph]
}

// NewFreeList creates an empty free-list.
func NewFreeList() *FreeList {
	return &FreeList{graphs: queue.New[*RenderGraph]()}
}

// Get returns a recycled graph, or a new one when none is free.
func (f *FreeList) Get(label string) *RenderGraph {
	if g, ok := f.graphs.TryPop(); ok {
		g.label = label
		return g
	}
	return New(label)
}

// Put resets g and makes it available for reuse.
func (f *FreeList) Put(g *RenderGraph) {
	g.Reset()
	f.graphs.Push(g)
}

// Len returns the number of free graphs.
func (f *FreeList) Len() int {
	return f.graphs.Len()
}
