package routing

import (
	"container/heap"
	"maps"
	"slices"
)

// ShortestPathTree holds single-source shortest distances over a Graph.
// Every graph node has an entry; nodes with no path hold Unreachable.
type ShortestPathTree struct {
	source NodeID
	dist   map[NodeID]float64
	prev   map[NodeID]NodeID
}

// queueItem is a tentative distance. Stale items are skipped on pop
// instead of being updated in place.
type queueItem struct {
	id   NodeID
	dist float64
}

type nodeQueue []queueItem

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)   { *q = append(*q, x.(queueItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// ShortestPaths runs Dijkstra from source in O((V+E) log V).
// A source absent from the graph yields distance 0 to itself and
// Unreachable for everything else.
func ShortestPaths(g *Graph, source NodeID) *ShortestPathTree {
	t := &ShortestPathTree{
		source: source,
		dist:   make(map[NodeID]float64, len(g.adj)+1),
		prev:   make(map[NodeID]NodeID),
	}
	for id := range g.adj {
		t.dist[id] = Unreachable
	}
	t.dist[source] = 0

	settled := make(map[NodeID]bool, len(g.adj))
	pq := &nodeQueue{{id: source, dist: 0}}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if settled[cur.id] {
			continue
		}
		settled[cur.id] = true

		for v, km := range g.adj[cur.id] {
			if settled[v] {
				continue
			}
			nd := cur.dist + km
			switch {
			case nd < t.dist[v]:
				t.dist[v] = nd
				t.prev[v] = cur.id
				heap.Push(pq, queueItem{id: v, dist: nd})
			case nd == t.dist[v] && cur.id < t.prev[v]:
				// equal-length alternatives resolve to the smaller predecessor
				t.prev[v] = cur.id
			}
		}
	}

	return t
}

// Source returns the node the tree was computed from
func (t *ShortestPathTree) Source() NodeID { return t.source }

// Distance returns the shortest distance to id, or Unreachable
func (t *ShortestPathTree) Distance(id NodeID) float64 {
	if d, ok := t.dist[id]; ok {
		return d
	}
	return Unreachable
}

// Reachable reports whether a finite path to id exists
func (t *ShortestPathTree) Reachable(id NodeID) bool {
	return !IsUnreachable(t.Distance(id))
}

// Distances returns a copy of the distance to every graph node and the source
func (t *ShortestPathTree) Distances() map[NodeID]float64 {
	return maps.Clone(t.dist)
}

// PathTo returns the nodes from the source to target, both included.
// It returns nil when target cannot be reached.
func (t *ShortestPathTree) PathTo(target NodeID) []NodeID {
	if IsUnreachable(t.Distance(target)) {
		return nil
	}

	path := []NodeID{target}
	for cur := target; cur != t.source; {
		p, ok := t.prev[cur]
		if !ok {
			return nil
		}
		path = append(path, p)
		cur = p
	}
	slices.Reverse(path)
	return path
}
