package graph

import (
	"container/heap"
	"fmt"
)

// Scheduler orders the nodes of a render graph for execution.
//
// Among ready nodes the one added first runs first, so a graph whose edges
// all point backwards executes in insertion order. The zero value is ready
// to use and reuses its buffers between calls; it is not safe for concurrent
// use.
type Scheduler struct {
	indegree   []int
	dependents [][]NodeID
	ready      idHeap
	order      []NodeID
}

// Schedule returns every node of g in a dependency-respecting order. The
// returned slice is reused by the next call.
func (s *Scheduler) Schedule(g *RenderGraph) ([]NodeID, error) {
	n := g.Len()
	s.reset(n)

	for id := range n {
		for _, dep := range g.deps[id] {
			s.indegree[id]++
			s.dependents[dep] = append(s.dependents[dep], NodeID(id))
		}
	}
	for id := range n {
		if s.indegree[id] == 0 {
			s.ready = append(s.ready, NodeID(id))
		}
	}
	heap.Init(&s.ready)

	for s.ready.Len() > 0 {
		id := heap.Pop(&s.ready).(NodeID)
		s.order = append(s.order, id)
		for _, next := range s.dependents[id] {
			s.indegree[next]--
			if s.indegree[next] == 0 {
				heap.Push(&s.ready, next)
			}
		}
	}

	if len(s.order) != n {
		return nil, fmt.Errorf("%w: %d of %d nodes unreachable in %q", ErrCycle, n-len(s.order), n, g.label)
	}
	return s.order, nil
}

func (s *Scheduler) reset(n int) {
	if cap(s.indegree) < n {
		s.indegree = make([]int, n)
	}
	s.indegree = s.indegree[:n]
	clear(s.indegree)

	if cap(s.dependents) < n {
		s.dependents = make([][]NodeID, n)
	}
	s.dependents = s.dependents[:n]
	for i := range s.dependents {
		s.dependents[i] = s.dependents[i][:0]
	}

	s.ready = s.ready[:0]
	s.order = s.order[:0]
}

// idHeap is a min-heap of node ids.
type idHeap []NodeID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *idHeap) Push(x any) { *h = append(*h, x.(NodeID)) }

func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
