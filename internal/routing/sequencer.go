package routing

import (
	"context"
	"slices"
)

// Strategy names how a visiting order was chosen
type Strategy string

const (
	StrategyTrivial Strategy = "trivial"
	StrategyExact   Strategy = "exact"
	StrategyGreedy  Strategy = "greedy"
)

const (
	// DefaultExactThreshold is the largest intermediate count searched exhaustively
	DefaultExactThreshold = 8
	// MaxExactThreshold caps the exhaustive search at 10! orders
	MaxExactThreshold = 10

	cancelCheckInterval = 4096
)

// Sequence is a complete visiting order with its cost
type Sequence struct {
	Order    []NodeID
	TotalKm  float64
	Strategy Strategy
}

// Sequencer picks the order in which intermediates are visited
type Sequencer struct {
	ExactThreshold int
}

// ClampThreshold bounds n to [0, MaxExactThreshold]
func ClampThreshold(n int) int {
	return max(0, min(n, MaxExactThreshold))
}

// Sequence orders intermediates between origin and destination using the
// distances in table. Among orders of equal cost the lexicographically
// smallest one is returned, so results are reproducible.
func (s Sequencer) Sequence(ctx context.Context, origin, destination NodeID, intermediates []NodeID, table *PairwiseTable) (Sequence, error) {
	stops := normalizeIntermediates(origin, destination, intermediates)

	switch {
	case len(stops) == 0 && origin == destination:
		return Sequence{Order: []NodeID{origin}, TotalKm: 0, Strategy: StrategyTrivial}, nil
	case len(stops) == 0:
		return Sequence{
			Order:    []NodeID{origin, destination},
			TotalKm:  table.At(origin, destination),
			Strategy: StrategyTrivial,
		}, nil
	case len(stops) <= ClampThreshold(s.ExactThreshold):
		return exactSequence(ctx, origin, destination, stops, table)
	default:
		return greedySequence(origin, destination, stops, table), nil
	}
}

// exactSequence enumerates every permutation of stops in lexicographic order
func exactSequence(ctx context.Context, origin, destination NodeID, stops []NodeID, table *PairwiseTable) (Sequence, error) {
	perm := slices.Clone(stops)
	best := slices.Clone(perm)
	bestKm := orderCost(origin, destination, perm, table)

	for n := 1; nextPermutation(perm); n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Sequence{}, err
			}
		}
		if km := orderCost(origin, destination, perm, table); km < bestKm {
			bestKm = km
			copy(best, perm)
		}
	}

	return Sequence{
		Order:    assemble(origin, destination, best),
		TotalKm:  bestKm,
		Strategy: StrategyExact,
	}, nil
}

// greedySequence repeatedly moves to the nearest unvisited intermediate.
// Ties, and the case where nothing remaining is reachable, pick the smallest id.
func greedySequence(origin, destination NodeID, stops []NodeID, table *PairwiseTable) Sequence {
	remaining := slices.Clone(stops)
	order := []NodeID{origin}
	current := origin
	total := 0.0

	for len(remaining) > 0 {
		bestIdx := 0
		bestKm := table.At(current, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if km := table.At(current, remaining[i]); km < bestKm {
				bestIdx, bestKm = i, km
			}
		}

		current = remaining[bestIdx]
		total += bestKm
		order = append(order, current)
		remaining = slices.Delete(remaining, bestIdx, bestIdx+1)
	}

	total += table.At(current, destination)
	order = append(order, destination)

	return Sequence{Order: order, TotalKm: total, Strategy: StrategyGreedy}
}

func orderCost(origin, destination NodeID, perm []NodeID, table *PairwiseTable) float64 {
	total := 0.0
	prev := origin
	for _, id := range perm {
		total += table.At(prev, id)
		prev = id
	}
	return total + table.At(prev, destination)
}

func assemble(origin, destination NodeID, stops []NodeID) []NodeID {
	order := make([]NodeID, 0, len(stops)+2)
	order = append(order, origin)
	order = append(order, stops...)
	return append(order, destination)
}

// nextPermutation rearranges p into its lexicographic successor.
// It returns false once p is the last permutation.
func nextPermutation(p []NodeID) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	slices.Reverse(p[i+1:])
	return true
}

// normalizeIntermediates returns the distinct intermediates in ascending
// order, dropping any that coincide with origin or destination
func normalizeIntermediates(origin, destination NodeID, ids []NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids))
	for _, id := range ids {
		if id == origin || id == destination {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
