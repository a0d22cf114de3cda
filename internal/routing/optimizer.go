package routing

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recorder receives one observation per finished optimization
type Recorder interface {
	ObserveOptimization(strategy Strategy, waypoints int, reachable bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOptimization(Strategy, int, bool, time.Duration) {}

// Request is the input of one optimization
type Request struct {
	Edges         []Edge
	Origin        NodeID
	Destination   NodeID
	Intermediates []NodeID
}

// Leg is the hop between two consecutive waypoints of a result
type Leg struct {
	From NodeID
	To   NodeID
	Km   float64
	// Path is nil when To cannot be reached from From
	Path []NodeID
}

// Result is the outcome of one optimization.
// TotalKm is Unreachable when no complete route exists.
type Result struct {
	Sequence  []NodeID
	TotalKm   float64
	Reachable bool
	Strategy  Strategy
	Legs      []Leg
	Table     *PairwiseTable
}

// Optimizer orders waypoints over a road graph. It holds only
// configuration and is safe for concurrent use.
type Optimizer struct {
	sequencer   Sequencer
	parallelism int
	logger      *zap.Logger
	recorder    Recorder
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithExactThreshold sets the largest intermediate count solved exactly.
// Values are clamped to [0, MaxExactThreshold].
func WithExactThreshold(k int) Option {
	return func(o *Optimizer) {
		o.sequencer.ExactThreshold = ClampThreshold(k)
	}
}

// WithParallelism bounds the concurrent shortest path runs per request
func WithParallelism(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(r Recorder) Option {
	return func(o *Optimizer) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewOptimizer creates an Optimizer with the given options
func NewOptimizer(opts ...Option) *Optimizer {
	o := &Optimizer{
		sequencer:   Sequencer{ExactThreshold: DefaultExactThreshold},
		parallelism: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExactThreshold returns the configured exactness threshold
func (o *Optimizer) ExactThreshold() int { return o.sequencer.ExactThreshold }

// Optimize computes the shortest visiting order for req.
// An unreachable route is a normal result, not an error.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	intermediates, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	g, err := BuildGraph(req.Edges)
	if err != nil {
		return nil, err
	}

	waypoints := waypointSet(req.Origin, req.Destination, intermediates)
	o.logger.Debug("[ROUTING] graph built",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("waypoints", len(waypoints)))

	trees, err := o.solveAll(ctx, g, waypoints)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shortest paths: %w", err)
	}
	table := NewPairwiseTable(waypoints, trees)

	seq, err := o.sequencer.Sequence(ctx, req.Origin, req.Destination, intermediates, table)
	if err != nil {
		return nil, fmt.Errorf("failed to sequence waypoints: %w", err)
	}

	result := &Result{
		Sequence:  seq.Order,
		TotalKm:   RoundKm(seq.TotalKm),
		Reachable: !IsUnreachable(seq.TotalKm),
		Strategy:  seq.Strategy,
		Legs:      buildLegs(seq.Order, table, trees),
		Table:     table,
	}

	elapsed := time.Since(start)
	o.recorder.ObserveOptimization(result.Strategy, len(waypoints), result.Reachable, elapsed)
	o.logger.Info("[ROUTING] optimization finished",
		zap.String("strategy", string(result.Strategy)),
		zap.Int("intermediates", len(intermediates)),
		zap.Bool("reachable", result.Reachable),
		zap.Float64("total_km", finiteOrZero(result.TotalKm)),
		zap.Duration("elapsed", elapsed))

	return result, nil
}

// solveAll runs one Dijkstra per waypoint. The graph is read-only so the
// runs share it without locking; each writes only its own slot.
func (o *Optimizer) solveAll(ctx context.Context, g *Graph, waypoints []NodeID) (map[NodeID]*ShortestPathTree, error) {
	slots := make([]*ShortestPathTree, len(waypoints))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(o.parallelism)
	for i, w := range waypoints {
		i, w := i, w
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = ShortestPaths(g, w)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	trees := make(map[NodeID]*ShortestPathTree, len(waypoints))
	for i, w := range waypoints {
		trees[w] = slots[i]
	}
	return trees, nil
}

func validateRequest(req Request) ([]NodeID, error) {
	if req.Origin <= 0 {
		return nil, invalidField("origin", "must be a positive id, got %d", req.Origin)
	}
	if req.Destination <= 0 {
		return nil, invalidField("destination", "must be a positive id, got %d", req.Destination)
	}
	for i, id := range req.Intermediates {
		if id <= 0 {
			return nil, invalidField(fmt.Sprintf("intermediates[%d]", i), "must be a positive id, got %d", id)
		}
	}

	intermediates := normalizeIntermediates(req.Origin, req.Destination, req.Intermediates)
	trivial := req.Origin == req.Destination && len(intermediates) == 0
	if len(req.Edges) == 0 && !trivial {
		return nil, invalidField("edges", "no distances available for a route with %d waypoints", len(intermediates)+2)
	}
	return intermediates, nil
}

func waypointSet(origin, destination NodeID, intermediates []NodeID) []NodeID {
	out := make([]NodeID, 0, len(intermediates)+2)
	out = append(out, origin)
	if destination != origin {
		out = append(out, destination)
	}
	return append(out, intermediates...)
}

func buildLegs(order []NodeID, table *PairwiseTable, trees map[NodeID]*ShortestPathTree) []Leg {
	if len(order) < 2 {
		return nil
	}
	legs := make([]Leg, 0, len(order)-1)
	for i := 1; i < len(order); i++ {
		from, to := order[i-1], order[i]
		leg := Leg{From: from, To: to, Km: table.At(from, to)}
		if tree := trees[from]; tree != nil {
			leg.Path = tree.PathTo(to)
		}
		legs = append(legs, leg)
	}
	return legs
}

// RoundKm rounds km to two decimals. Unreachable stays Unreachable.
func RoundKm(km float64) float64 {
	if math.IsInf(km, 0) || math.IsNaN(km) {
		return km
	}
	return math.Round(km*100) / 100
}

func finiteOrZero(km float64) float64 {
	if math.IsInf(km, 0) {
		return 0
	}
	return km
}
