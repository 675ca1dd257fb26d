// internal/dependency/graph.go
package dependency

import (
	"fmt"
	"sort"
	"strings"
)

// NodeID is the unique identifier for a node inside a dependency graph. The
// container uses the canonical form of a service name or alias.
type NodeID string

// NodeKind categorises nodes.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	// KindService is a node owned by an installed controller; its edges are
	// the controller's declared dependencies.
	KindService
	// KindAlias is an alternative name; its only edge points at the primary
	// name of the controller it belongs to.
	KindAlias
)

func (k NodeKind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindAlias:
		return "alias"
	default:
		return "unknown"
	}
}

// Node represents a name together with its dependency list.
//
// Edges may point at IDs that have no node. Such targets are leaves: a name
// that is depended upon but not installed yet.
type Node struct {
	ID        NodeID
	Kind      NodeKind
	DependsOn []NodeID
}

// Graph answers dependency queries and detects cycles. It is *not*
// thread-safe by itself; callers must synchronise if they write concurrently.
type Graph struct {
	nodes map[NodeID]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds (or replaces) a node in the graph.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	// Copy to avoid external mutations
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	g.nodes[n.ID] = &copied
}

// RemoveNode deletes a node. Edges of other nodes pointing at it are kept,
// the ID simply becomes a leaf again.
func (g *Graph) RemoveNode(id NodeID) {
	delete(g.nodes, id)
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
		// Return a copy to avoid callers modifying internal slice.
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node, sorted. This is an O(n) walk.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == id {
				res = append(res, n.ID)
				break
			}
		}
	}
	sortIDs(res)
	return res
}

// CycleError describes a dependency cycle. Path starts and ends with the same
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

// FindCycle searches for a cycle reachable from any of the given start nodes
// and returns its path, or nil if there is none. With no start nodes the
// whole graph is searched.
func (g *Graph) FindCycle(start ...NodeID) []NodeID {
	if len(start) == 0 {
		start = g.ids()
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[NodeID]int, len(g.nodes))
	var stack []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		color[id] = gray
		stack = append(stack, id)
		if n, ok := g.nodes[id]; ok {
			for _, dep := range n.DependsOn {
				if _, exists := g.nodes[dep]; !exists {
					continue
				}
				switch color[dep] {
				case gray:
					for i, s := range stack {
						if s == dep {
							path := append([]NodeID(nil), stack[i:]...)
							return append(path, dep)
						}
					}
				case white:
					if path := visit(dep); path != nil {
						return path
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range start {
		if color[id] == white {
			if path := visit(id); path != nil {
				return path
			}
		}
	}
	return nil
}

// TopologicalSort orders ids so that every node comes after the nodes it
// depends on. Only edges between members of ids are considered. Ties are
// broken by ID so the result is deterministic.
func (g *Graph) TopologicalSort(ids []NodeID) ([]NodeID, error) {
	members := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	sorted := append([]NodeID(nil), ids...)
	sortIDs(sorted)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[NodeID]int, len(ids))
	order := make([]NodeID, 0, len(ids))
	var path []NodeID

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			for i, p := range path {
				if p == id {
					return &CycleError{Path: append(append([]NodeID(nil), path[i:]...), id)}
				}
			}
			return &CycleError{Path: []NodeID{id, id}}
		}
		state[id] = visiting
		path = append(path, id)
		if n, ok := g.nodes[id]; ok {
			deps := append([]NodeID(nil), n.DependsOn...)
			sortIDs(deps)
			for _, dep := range deps {
				if !members[dep] {
					continue
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range sorted {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Validate returns a CycleError if the graph contains a cycle.
func (g *Graph) Validate() error {
	if path := g.FindCycle(); path != nil {
		return &CycleError{Path: path}
	}
	return nil
}

// String renders the graph one node per line, for debugging.
func (g *Graph) String() string {
	var b strings.Builder
	for _, id := range g.ids() {
		n := g.nodes[id]
		fmt.Fprintf(&b, "%s (%s) -> %v\n", id, n.Kind, n.DependsOn)
	}
	return b.String()
}

func (g *Graph) ids() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
