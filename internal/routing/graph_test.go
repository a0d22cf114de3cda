package routing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraph_Symmetric(t *testing.T) {
	g, err := BuildGraph([]Edge{{From: 1, To: 2, Km: 10}})
	require.NoError(t, err)

	ab, ok := g.Weight(1, 2)
	require.True(t, ok)
	ba, ok := g.Weight(2, 1)
	require.True(t, ok)
	assert.Equal(t, 10.0, ab)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuildGraph_DuplicateKeepsMinimum(t *testing.T) {
	g, err := BuildGraph([]Edge{
		{From: 1, To: 2, Km: 10},
		{From: 2, To: 1, Km: 4},
		{From: 1, To: 2, Km: 7},
	})
	require.NoError(t, err)

	km, _ := g.Weight(1, 2)
	assert.Equal(t, 4.0, km)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuildGraph_SelfLoopIgnored(t *testing.T) {
	g, err := BuildGraph([]Edge{{From: 3, To: 3, Km: 5}})
	require.NoError(t, err)

	assert.True(t, g.HasNode(3))
	assert.Empty(t, g.Neighbors(3))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuildGraph_NodesSorted(t *testing.T) {
	g, err := BuildGraph([]Edge{{From: 9, To: 2, Km: 1}, {From: 5, To: 2, Km: 1}})
	require.NoError(t, err)

	assert.Equal(t, []NodeID{2, 5, 9}, g.Nodes())
}

func TestBuildGraph_RejectsInvalidEdges(t *testing.T) {
	tests := []struct {
		name     string
		edge     Edge
		distance bool
	}{
		{"negative distance", Edge{From: 1, To: 2, Km: -1}, true},
		{"nan distance", Edge{From: 1, To: 2, Km: math.NaN()}, true},
		{"infinite distance", Edge{From: 1, To: 2, Km: math.Inf(1)}, true},
		{"zero id", Edge{From: 0, To: 2, Km: 1}, false},
		{"negative id", Edge{From: 1, To: -2, Km: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := BuildGraph([]Edge{{From: 1, To: 3, Km: 1}, tt.edge})
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, tt.distance, errors.Is(err, ErrInvalidDistance))

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, "edges[1]", inputErr.Field)
		})
	}
}

func TestBuildGraph_ZeroDistanceAllowed(t *testing.T) {
	g, err := BuildGraph([]Edge{{From: 1, To: 2, Km: 0}})
	require.NoError(t, err)

	km, ok := g.Weight(1, 2)
	assert.True(t, ok)
	assert.Zero(t, km)
}
