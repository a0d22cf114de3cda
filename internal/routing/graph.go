package routing

import (
	"fmt"
	"math"
	"slices"
)

// NodeID identifies a municipality in the road network
type NodeID = int64

// Unreachable is the distance reported between nodes with no connecting path
var Unreachable = math.Inf(1)

// IsUnreachable reports whether km denotes a missing path
func IsUnreachable(km float64) bool {
	return math.IsInf(km, 1)
}

// Edge is an undirected road between two municipalities
type Edge struct {
	From NodeID
	To   NodeID
	Km   float64
}

// Graph is an undirected weighted adjacency map.
// When the same pair appears more than once the shortest distance is kept.
type Graph struct {
	adj   map[NodeID]map[NodeID]float64
	edges int
}

// BuildGraph validates edges and assembles them into a Graph.
// Self-loops register their node but add no edge.
func BuildGraph(edges []Edge) (*Graph, error) {
	g := &Graph{adj: make(map[NodeID]map[NodeID]float64)}

	for i, e := range edges {
		if err := validateEdge(i, e); err != nil {
			return nil, err
		}
		g.addEdge(e)
	}

	return g, nil
}

func validateEdge(i int, e Edge) error {
	field := fmt.Sprintf("edges[%d]", i)
	if e.From <= 0 || e.To <= 0 {
		return invalidField(field, "node ids must be positive, got %d and %d", e.From, e.To)
	}
	if math.IsNaN(e.Km) || math.IsInf(e.Km, 0) || e.Km < 0 {
		return &InputError{
			Field:  field,
			Reason: fmt.Sprintf("distance %v between %d and %d", e.Km, e.From, e.To),
			Err:    ErrInvalidDistance,
		}
	}
	return nil
}

func (g *Graph) ensure(id NodeID) map[NodeID]float64 {
	nbrs, ok := g.adj[id]
	if !ok {
		nbrs = make(map[NodeID]float64)
		g.adj[id] = nbrs
	}
	return nbrs
}

func (g *Graph) addEdge(e Edge) {
	from := g.ensure(e.From)
	to := g.ensure(e.To)
	if e.From == e.To {
		return
	}

	current, exists := from[e.To]
	if exists && current <= e.Km {
		return
	}
	if !exists {
		g.edges++
	}
	from[e.To] = e.Km
	to[e.From] = e.Km
}

// HasNode reports whether id appears in any edge
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.adj[id]
	return ok
}

// Nodes returns every node id in ascending order
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Weight returns the direct edge distance between a and b
func (g *Graph) Weight(a, b NodeID) (float64, bool) {
	km, ok := g.adj[a][b]
	return km, ok
}

// Neighbors returns the adjacent nodes of id with their distances.
// The returned map is owned by the graph and must not be modified.
func (g *Graph) Neighbors(id NodeID) map[NodeID]float64 {
	return g.adj[id]
}

// NodeCount returns the number of distinct nodes
func (g *Graph) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of distinct undirected edges
func (g *Graph) EdgeCount() int { return g.edges }
