// Package graph provides the render graph: a resettable batch of GPU
// operations with dependency edges, the scheduler that orders them, and the
// builder that records them into native command buffers.
//
// A RenderGraph is owned by exactly one goroutine at a time. The producer
// fills it, the submission runner drains and resets it, and the free-list
// holds it in between.
package graph

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendergraph/native"
)

// Graph errors.
var (
	// ErrCycle is returned when explicit dependencies form a cycle.
	ErrCycle = errors.New("graph: dependency cycle")

	// ErrInvalidNode is returned for node ids outside the graph.
	ErrInvalidNode = errors.New("graph: invalid node id")

	// ErrSelfDependency is returned when a node is made to depend on itself.
	ErrSelfDependency = errors.New("graph: node depends on itself")

	// ErrNilCommand is returned when adding a node without a command.
	ErrNilCommand = errors.New("graph: node has no command")
)

// NodeID identifies a node within one graph. Ids are dense and assigned in
// insertion order; they are invalidated by Reset.
type NodeID int

// Node is one recorded operation plus the resources it touches.
type Node struct {
	Label   string
	Command native.Command

	// Reads and Writes drive automatic dependency tracking. Resources are
	// map keys and must be comparable; backends use pointer types.
	Reads  []native.Resource
	Writes []native.Resource
}

// access tracks the last writer and the readers since that write for one
// resource.
type access struct {
	writer  NodeID
	written bool
	readers []NodeID
}

// RenderGraph is a mutable DAG of recorded operations.
//
// Adding a node derives edges from its resource access: a read depends on
// the last write, a write depends on the last write and on every read since.
type RenderGraph struct {
	label string
	nodes []Node
	deps  [][]NodeID

	resources map[native.Resource]*access
}

// New creates an empty render graph.
func New(label string) *RenderGraph {
	return &RenderGraph{
		label:     label,
		nodes:     make([]Node, 0, 16),
		deps:      make([][]NodeID, 0, 16),
		resources: make(map[native.Resource]*access),
	}
}

// Label returns the debug label.
func (g *RenderGraph) Label() string { return g.label }

// SetLabel changes the debug label.
func (g *RenderGraph) SetLabel(label string) { g.label = label }

// Len returns the number of nodes.
func (g *RenderGraph) Len() int { return len(g.nodes) }

// IsEmpty reports whether the graph has no recorded operations.
func (g *RenderGraph) IsEmpty() bool { return len(g.nodes) == 0 }

// Add appends a node and returns its id.
func (g *RenderGraph) Add(n Node) (NodeID, error) {
	if n.Command == nil {
		return 0, ErrNilCommand
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.deps = append(g.deps, nil)

	for _, r := range n.Reads {
		a := g.accessFor(r)
		if a.written {
			g.addEdge(id, a.writer)
		}
		a.readers = append(a.readers, id)
	}
	for _, r := range n.Writes {
		a := g.accessFor(r)
		if a.written {
			g.addEdge(id, a.writer)
		}
		for _, reader := range a.readers {
			g.addEdge(id, reader)
		}
		a.writer = id
		a.written = true
		a.readers = a.readers[:0]
	}
	return id, nil
}

// AddDependency makes node wait for dependsOn.
func (g *RenderGraph) AddDependency(node, dependsOn NodeID) error {
	if !g.valid(node) || !g.valid(dependsOn) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidNode, node, dependsOn)
	}
	if node == dependsOn {
		return fmt.Errorf("%w: %d", ErrSelfDependency, node)
	}
	g.addEdge(node, dependsOn)
	return nil
}

// Node returns the node with the given id.
func (g *RenderGraph) Node(id NodeID) (Node, error) {
	if !g.valid(id) {
		return Node{}, fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	return g.nodes[id], nil
}

// Dependencies returns the ids id depends on. The slice must not be
// modified.
func (g *RenderGraph) Dependencies(id NodeID) ([]NodeID, error) {
	if !g.valid(id) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	return g.deps[id], nil
}

// Validate checks that the dependencies are acyclic.
func (g *RenderGraph) Validate() error {
	var s Scheduler
	_, err := s.Schedule(g)
	return err
}

// Reset empties the graph for reuse, keeping allocated capacity.
func (g *RenderGraph) Reset() {
	clear(g.nodes)
	g.nodes = g.nodes[:0]
	for i := range g.deps {
		g.deps[i] = nil
	}
	g.deps = g.deps[:0]
	clear(g.resources)
}

func (g *RenderGraph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

func (g *RenderGraph) accessFor(r native.Resource) *access {
	a, ok := g.resources[r]
	if !ok {
		a = &access{}
		g.resources[r] = a
	}
	return a
}

func (g *RenderGraph) addEdge(node, dependsOn NodeID) {
	if node == dependsOn {
		return
	}
	for _, d := range g.deps[node] {
		if d == dependsOn {
			return
		}
	}
	g.deps[node] = append(g.deps[node], dependsOn)
}
