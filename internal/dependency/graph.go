package dependency

import (
	"fmt"
	"strings"
)

// NodeID is the unique identifier for a node inside a dependency graph. For
// validation parameters it is the parameter name (e.g. "hei_id").
type NodeID string

// Node is a named unit together with its dependency list.
//
// A node can depend on zero or more other nodes. The graph must be a
// Directed Acyclic Graph; TopologicalOrder reports a *CycleError otherwise.
type Node struct {
	ID           NodeID
	FriendlyName string
	DependsOn    []NodeID
}

// Graph answers dependency queries and produces a deterministic resolution
// order. It is not thread-safe; build it once and then only read from it.
type Graph struct {
	nodes map[NodeID]*Node
	// order keeps insertion order so that ties are broken by declaration.
	order []NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds (or replaces) a node in the graph. A replaced node keeps its
// original position in declaration order.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Dependencies returns a slice of immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node, in declaration order.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, nid := range g.order {
		n := g.nodes[nid]
		for _, dep := range n.DependsOn {
			if dep == id {
				res = append(res, n.ID)
				break
			}
		}
	}
	return res
}

// Validate checks that every dependency refers to a known node and that the
// graph has no cycles.
func (g *Graph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// MissingDependencyError reports a dependency on a node that was never added.
type MissingDependencyError struct {
	Node    NodeID
	Missing NodeID
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s depends on unknown node %s", e.Node, e.Missing)
}

// CycleError reports a dependency cycle. Path starts and ends with the same
// node.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// TopologicalOrder returns all nodes such that every node comes after all of
// its dependencies. Among nodes whose dependencies are satisfied, the one
// declared first wins, so the result is stable for a given graph.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	for _, id := range g.order {
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, &MissingDependencyError{Node: id, Missing: dep}
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	done := make(map[NodeID]bool, len(g.nodes))
	result := make([]NodeID, 0, len(g.nodes))
	for len(result) < len(g.order) {
		for _, id := range g.order {
			if done[id] || !g.ready(id, done) {
				continue
			}
			done[id] = true
			result = append(result, id)
			break
		}
	}
	return result, nil
}

func (g *Graph) ready(id NodeID, done map[NodeID]bool) bool {
	for _, dep := range g.nodes[id].DependsOn {
		if !done[dep] {
			return false
		}
	}
	return true
}

const (
	unvisited = iota
	visiting
	visited
)

func (g *Graph) findCycle() []NodeID {
	marks := make(map[NodeID]int, len(g.nodes))
	var stack []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		marks[id] = visiting
		stack = append(stack, id)
		for _, dep := range g.nodes[id].DependsOn {
			switch marks[dep] {
			case visiting:
				for i, s := range stack {
					if s == dep {
						cycle := append([]NodeID(nil), stack[i:]...)
						return append(cycle, dep)
					}
				}
			case unvisited:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = visited
		return nil
	}

	for _, id := range g.order {
		if marks[id] == unvisited {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}
