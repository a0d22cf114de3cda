package routing_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/routing"
	"github.com/jkfsjkfs/proyecto-rutas/internal/testutil"
)

func scenario() []routing.Edge {
	return []routing.Edge{
		{From: 1, To: 2, Km: 10},
		{From: 2, To: 3, Km: 5},
		{From: 3, To: 4, Km: 8},
		{From: 1, To: 4, Km: 30},
	}
}

type recordedRun struct {
	strategy  routing.Strategy
	waypoints int
	reachable bool
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (f *fakeRecorder) ObserveOptimization(s routing.Strategy, waypoints int, reachable bool, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, recordedRun{s, waypoints, reachable})
}

func TestOptimize_Scenario(t *testing.T) {
	rec := &fakeRecorder{}
	opt := routing.NewOptimizer(routing.WithLogger(zap.NewNop()), routing.WithMetrics(rec))

	res, err := opt.Optimize(context.Background(), routing.Request{
		Edges:         scenario(),
		Origin:        1,
		Destination:   4,
		Intermediates: []routing.NodeID{2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []routing.NodeID{1, 2, 3, 4}, res.Sequence)
	assert.Equal(t, 23.0, res.TotalKm)
	assert.True(t, res.Reachable)
	assert.Equal(t, routing.StrategyExact, res.Strategy)

	require.Len(t, res.Legs, 3)
	assert.Equal(t, routing.Leg{From: 1, To: 2, Km: 10, Path: []routing.NodeID{1, 2}}, res.Legs[0])
	assert.Equal(t, routing.Leg{From: 3, To: 4, Km: 8, Path: []routing.NodeID{3, 4}}, res.Legs[2])

	require.Len(t, rec.runs, 1)
	assert.Equal(t, recordedRun{routing.StrategyExact, 4, true}, rec.runs[0])
}

func TestOptimize_NoIntermediatesUsesShortestPath(t *testing.T) {
	opt := routing.NewOptimizer()

	res, err := opt.Optimize(context.Background(), routing.Request{Edges: scenario(), Origin: 1, Destination: 4})
	require.NoError(t, err)

	assert.Equal(t, []routing.NodeID{1, 4}, res.Sequence)
	assert.Equal(t, 23.0, res.TotalKm, "graph-wide shortest path beats the direct edge")
	assert.Equal(t, routing.StrategyTrivial, res.Strategy)
	require.Len(t, res.Legs, 1)
	assert.Equal(t, []routing.NodeID{1, 2, 3, 4}, res.Legs[0].Path)
}

func TestOptimize_SinglePoint(t *testing.T) {
	opt := routing.NewOptimizer()

	res, err := opt.Optimize(context.Background(), routing.Request{Origin: 7, Destination: 7})
	require.NoError(t, err)

	assert.Equal(t, []routing.NodeID{7}, res.Sequence)
	assert.Zero(t, res.TotalKm)
	assert.True(t, res.Reachable)
	assert.Empty(t, res.Legs)
}

func TestOptimize_RoundTripThroughIntermediates(t *testing.T) {
	opt := routing.NewOptimizer()

	res, err := opt.Optimize(context.Background(), routing.Request{
		Edges:         scenario(),
		Origin:        1,
		Destination:   1,
		Intermediates: []routing.NodeID{3},
	})
	require.NoError(t, err)

	assert.Equal(t, []routing.NodeID{1, 3, 1}, res.Sequence)
	assert.Equal(t, 30.0, res.TotalKm)
}

func TestOptimize_DisconnectedWaypoint(t *testing.T) {
	opt := routing.NewOptimizer()

	res, err := opt.Optimize(context.Background(), routing.Request{
		Edges:         scenario(),
		Origin:        1,
		Destination:   4,
		Intermediates: []routing.NodeID{99},
	})
	require.NoError(t, err)

	assert.False(t, res.Reachable)
	assert.True(t, math.IsInf(res.TotalKm, 1))
	assert.Equal(t, []routing.NodeID{1, 99, 4}, res.Sequence)
	require.Len(t, res.Legs, 2)
	assert.Nil(t, res.Legs[0].Path)
	assert.True(t, routing.IsUnreachable(res.Legs[0].Km))
}

func TestOptimize_DeduplicatesIntermediates(t *testing.T) {
	opt := routing.NewOptimizer()

	res, err := opt.Optimize(context.Background(), routing.Request{
		Edges:         scenario(),
		Origin:        1,
		Destination:   4,
		Intermediates: []routing.NodeID{3, 2, 3, 1, 4},
	})
	require.NoError(t, err)

	assert.Equal(t, []routing.NodeID{1, 2, 3, 4}, res.Sequence)
}

func TestOptimize_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		req   routing.Request
		field string
	}{
		{"missing origin", routing.Request{Edges: scenario(), Destination: 4}, "origin"},
		{"missing destination", routing.Request{Edges: scenario(), Origin: 1}, "destination"},
		{"negative intermediate", routing.Request{Edges: scenario(), Origin: 1, Destination: 4, Intermediates: []routing.NodeID{2, -3}}, "intermediates[1]"},
		{"no edges", routing.Request{Origin: 1, Destination: 4}, "edges"},
		{"negative distance", routing.Request{Edges: []routing.Edge{{From: 1, To: 4, Km: -2}}, Origin: 1, Destination: 4}, "edges[0]"},
	}

	opt := routing.NewOptimizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := opt.Optimize(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, routing.ErrInvalidInput)

			var inputErr *routing.InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestOptimize_GreedyAboveThreshold(t *testing.T) {
	opt := routing.NewOptimizer(routing.WithExactThreshold(2))

	res, err := opt.Optimize(context.Background(), routing.Request{
		Edges:         testutil.RandomConnectedEdges(3, 10, 8),
		Origin:        1,
		Destination:   2,
		Intermediates: []routing.NodeID{3, 4, 5},
	})
	require.NoError(t, err)

	assert.Equal(t, routing.StrategyGreedy, res.Strategy)
	assert.True(t, res.Reachable)
	assertEndpointsAndStops(t, res.Sequence, 1, 2, []routing.NodeID{3, 4, 5})
}

func TestOptimize_ThresholdIsClamped(t *testing.T) {
	assert.Equal(t, routing.MaxExactThreshold, routing.NewOptimizer(routing.WithExactThreshold(50)).ExactThreshold())
	assert.Equal(t, routing.DefaultExactThreshold, routing.NewOptimizer().ExactThreshold())
}

func TestOptimize_MatchesBruteForce(t *testing.T) {
	opt := routing.NewOptimizer()

	for seed := uint64(1); seed <= 40; seed++ {
		edges := testutil.RandomConnectedEdges(seed, 14, 12)
		picked := testutil.PickDistinct(seed+1000, 14, 2+int(seed%7))
		origin, destination, stops := picked[0], picked[1], picked[2:]
		oracle := testutil.FloydWarshall(edges)

		res, err := opt.Optimize(context.Background(), routing.Request{
			Edges:         edges,
			Origin:        origin,
			Destination:   destination,
			Intermediates: stops,
		})
		require.NoError(t, err, "seed %d", seed)

		want := testutil.BruteForceBest(origin, destination, stops, oracle.At)
		assert.InDelta(t, want, res.TotalKm, 0.005, "seed %d", seed)
		assertEndpointsAndStops(t, res.Sequence, origin, destination, stops)

		sum := 0.0
		for _, leg := range res.Legs {
			sum += leg.Km
			require.NotEmpty(t, leg.Path)
			assert.Equal(t, leg.From, leg.Path[0])
			assert.Equal(t, leg.To, leg.Path[len(leg.Path)-1])
		}
		assert.InDelta(t, res.TotalKm, sum, 0.005)
	}
}

func TestOptimize_TableMatchesFloydWarshall(t *testing.T) {
	opt := routing.NewOptimizer()

	for seed := uint64(1); seed <= 10; seed++ {
		edges := testutil.RandomConnectedEdges(seed, 20, 25)
		picked := testutil.PickDistinct(seed, 20, 6)
		oracle := testutil.FloydWarshall(edges)

		res, err := opt.Optimize(context.Background(), routing.Request{
			Edges:         edges,
			Origin:        picked[0],
			Destination:   picked[1],
			Intermediates: picked[2:],
		})
		require.NoError(t, err)

		for _, a := range picked {
			for _, b := range picked {
				assert.Equal(t, oracle.At(a, b), res.Table.At(a, b), "seed %d pair %d-%d", seed, a, b)
				assert.Equal(t, res.Table.At(a, b), res.Table.At(b, a))
				for _, c := range picked {
					assert.LessOrEqual(t, res.Table.At(a, c), res.Table.At(a, b)+res.Table.At(b, c))
				}
			}
		}
	}
}

func TestOptimize_ParallelismDoesNotChangeResult(t *testing.T) {
	edges := testutil.RandomConnectedEdges(77, 30, 40)
	req := routing.Request{
		Edges:         edges,
		Origin:        1,
		Destination:   30,
		Intermediates: []routing.NodeID{5, 9, 12, 17, 21, 26},
	}

	serial, err := routing.NewOptimizer(routing.WithParallelism(1)).Optimize(context.Background(), req)
	require.NoError(t, err)
	parallel, err := routing.NewOptimizer(routing.WithParallelism(8)).Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, serial.Sequence, parallel.Sequence)
	assert.Equal(t, serial.TotalKm, parallel.TotalKm)
	assert.Equal(t, serial.Legs, parallel.Legs)
}

func TestOptimize_ConcurrentCalls(t *testing.T) {
	opt := routing.NewOptimizer()
	req := routing.Request{Edges: scenario(), Origin: 1, Destination: 4, Intermediates: []routing.NodeID{3, 2}}

	var wg sync.WaitGroup
	results := make([]*routing.Result, 16)
	errs := make([]error, 16)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = opt.Optimize(context.Background(), req)
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, []routing.NodeID{1, 2, 3, 4}, results[i].Sequence)
		assert.Equal(t, 23.0, results[i].TotalKm)
	}
}

func TestOptimize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := routing.NewOptimizer().Optimize(ctx, routing.Request{
		Edges:         scenario(),
		Origin:        1,
		Destination:   4,
		Intermediates: []routing.NodeID{2, 3},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 12.35, routing.RoundKm(12.345678))
	assert.Equal(t, 7.0, routing.RoundKm(7))
	assert.True(t, math.IsInf(routing.RoundKm(routing.Unreachable), 1))
}

func assertEndpointsAndStops(t *testing.T, seq []routing.NodeID, origin, destination routing.NodeID, stops []routing.NodeID) {
	t.Helper()
	require.GreaterOrEqual(t, len(seq), 2)
	assert.Equal(t, origin, seq[0])
	assert.Equal(t, destination, seq[len(seq)-1])

	middle := slices.Clone(seq[1 : len(seq)-1])
	want := slices.Clone(stops)
	slices.Sort(middle)
	slices.Sort(want)
	assert.Equal(t, want, middle)
}
