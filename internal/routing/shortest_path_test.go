package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioEdges() []Edge {
	return []Edge{
		{From: 1, To: 2, Km: 10},
		{From: 2, To: 3, Km: 5},
		{From: 3, To: 4, Km: 8},
		{From: 1, To: 4, Km: 30},
	}
}

func mustGraph(t *testing.T, edges []Edge) *Graph {
	t.Helper()
	g, err := BuildGraph(edges)
	require.NoError(t, err)
	return g
}

func TestShortestPaths_UsesWholeGraph(t *testing.T) {
	tree := ShortestPaths(mustGraph(t, scenarioEdges()), 1)

	assert.Equal(t, 0.0, tree.Distance(1))
	assert.Equal(t, 10.0, tree.Distance(2))
	assert.Equal(t, 15.0, tree.Distance(3))
	assert.Equal(t, 23.0, tree.Distance(4))
	assert.Equal(t, []NodeID{1, 2, 3, 4}, tree.PathTo(4))
	assert.Equal(t, NodeID(1), tree.Source())
}

func TestShortestPaths_Symmetry(t *testing.T) {
	g := mustGraph(t, scenarioEdges())

	for _, a := range g.Nodes() {
		from := ShortestPaths(g, a)
		for _, b := range g.Nodes() {
			assert.Equal(t, from.Distance(b), ShortestPaths(g, b).Distance(a), "pair %d-%d", a, b)
		}
	}
}

func TestShortestPaths_UnreachableIsExplicit(t *testing.T) {
	g := mustGraph(t, []Edge{{From: 1, To: 2, Km: 3}, {From: 5, To: 6, Km: 1}})
	tree := ShortestPaths(g, 1)

	dist := tree.Distances()
	require.Contains(t, dist, NodeID(5))
	assert.True(t, IsUnreachable(dist[5]))
	assert.True(t, IsUnreachable(dist[6]))
	assert.False(t, tree.Reachable(6))
	assert.True(t, tree.Reachable(2))
	assert.Nil(t, tree.PathTo(6))

	// never seen by the graph at all
	assert.True(t, IsUnreachable(tree.Distance(99)))
}

func TestShortestPaths_SourceOutsideGraph(t *testing.T) {
	tree := ShortestPaths(mustGraph(t, scenarioEdges()), 42)

	assert.Equal(t, 0.0, tree.Distance(42))
	assert.Equal(t, []NodeID{42}, tree.PathTo(42))
	assert.True(t, IsUnreachable(tree.Distance(1)))
}

func TestShortestPaths_EqualPathsAreDeterministic(t *testing.T) {
	g := mustGraph(t, []Edge{
		{From: 1, To: 3, Km: 1},
		{From: 1, To: 2, Km: 1},
		{From: 3, To: 4, Km: 1},
		{From: 2, To: 4, Km: 1},
	})

	for i := 0; i < 50; i++ {
		tree := ShortestPaths(g, 1)
		require.Equal(t, 2.0, tree.Distance(4))
		require.Equal(t, []NodeID{1, 2, 4}, tree.PathTo(4))
	}
}

func TestShortestPaths_ZeroWeightEdges(t *testing.T) {
	g := mustGraph(t, []Edge{
		{From: 1, To: 2, Km: 0},
		{From: 2, To: 3, Km: 0},
		{From: 1, To: 3, Km: 0},
	})
	tree := ShortestPaths(g, 1)

	assert.Equal(t, 0.0, tree.Distance(3))
	assert.Equal(t, []NodeID{1, 3}, tree.PathTo(3))
}

func TestPairwiseTable(t *testing.T) {
	g := mustGraph(t, scenarioEdges())
	waypoints := []NodeID{1, 4, 7}
	trees := map[NodeID]*ShortestPathTree{}
	for _, w := range waypoints {
		trees[w] = ShortestPaths(g, w)
	}

	table := NewPairwiseTable(waypoints, trees)

	assert.Equal(t, 23.0, table.At(1, 4))
	assert.Equal(t, 23.0, table.At(4, 1))
	assert.Equal(t, 0.0, table.At(7, 7))
	assert.True(t, IsUnreachable(table.At(1, 7)))
	assert.True(t, IsUnreachable(table.At(1, 2)), "pairs outside the waypoint set are not populated")
	assert.Equal(t, waypoints, table.Waypoints())
}
