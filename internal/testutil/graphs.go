package testutil

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/jkfsjkfs/proyecto-rutas/internal/routing"
)

// RandomConnectedEdges builds a connected graph over nodes 1..n: a random
// spanning tree plus extra random edges. Distances are whole kilometres so
// sums are exact regardless of addition order.
func RandomConnectedEdges(seed uint64, n, extra int) []routing.Edge {
	r := rand.New(rand.NewSource(seed))
	edges := make([]routing.Edge, 0, n-1+extra)

	order := r.Perm(n)
	for i := 1; i < n; i++ {
		parent := order[r.Intn(i)]
		edges = append(edges, routing.Edge{
			From: routing.NodeID(order[i] + 1),
			To:   routing.NodeID(parent + 1),
			Km:   float64(1 + r.Intn(100)),
		})
	}
	for i := 0; i < extra; i++ {
		a, b := r.Intn(n)+1, r.Intn(n)+1
		edges = append(edges, routing.Edge{
			From: routing.NodeID(a),
			To:   routing.NodeID(b),
			Km:   float64(1 + r.Intn(100)),
		})
	}
	return edges
}

// PickDistinct returns k distinct node ids from 1..n
func PickDistinct(seed uint64, n, k int) []routing.NodeID {
	r := rand.New(rand.NewSource(seed))
	perm := r.Perm(n)
	out := make([]routing.NodeID, k)
	for i := range out {
		out[i] = routing.NodeID(perm[i] + 1)
	}
	return out
}

type pair struct{ a, b routing.NodeID }

// DistanceMatrix is an all-pairs shortest distance oracle
type DistanceMatrix struct {
	km map[pair]float64
}

// At returns the shortest distance between a and b, +Inf when disconnected
func (m *DistanceMatrix) At(a, b routing.NodeID) float64 {
	if a == b {
		return 0
	}
	if d, ok := m.km[pair{a, b}]; ok {
		return d
	}
	return math.Inf(1)
}

// FloydWarshall computes all-pairs shortest distances directly from edges
func FloydWarshall(edges []routing.Edge) *DistanceMatrix {
	m := &DistanceMatrix{km: make(map[pair]float64)}
	seen := make(map[routing.NodeID]bool)
	var nodes []routing.NodeID

	for _, e := range edges {
		for _, id := range []routing.NodeID{e.From, e.To} {
			if !seen[id] {
				seen[id] = true
				nodes = append(nodes, id)
			}
		}
		if e.From == e.To {
			continue
		}
		if cur, ok := m.km[pair{e.From, e.To}]; !ok || e.Km < cur {
			m.km[pair{e.From, e.To}] = e.Km
			m.km[pair{e.To, e.From}] = e.Km
		}
	}

	for _, k := range nodes {
		for _, i := range nodes {
			for _, j := range nodes {
				if via := m.At(i, k) + m.At(k, j); via < m.At(i, j) {
					m.km[pair{i, j}] = via
				}
			}
		}
	}
	return m
}

// BruteForceBest returns the minimum total over every ordering of
// intermediates between origin and destination
func BruteForceBest(origin, destination routing.NodeID, intermediates []routing.NodeID, dist func(a, b routing.NodeID) float64) float64 {
	best := math.Inf(1)
	perm := append([]routing.NodeID(nil), intermediates...)

	var visit func(k int)
	visit = func(k int) {
		if k == len(perm) {
			total := 0.0
			prev := origin
			for _, id := range perm {
				total += dist(prev, id)
				prev = id
			}
			total += dist(prev, destination)
			best = math.Min(best, total)
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			visit(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	visit(0)
	return best
}
