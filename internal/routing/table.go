package routing

type pairKey struct {
	from NodeID
	to   NodeID
}

// PairwiseTable holds shortest distances between every ordered pair of
// waypoints. The distance from a node to itself is always 0.
type PairwiseTable struct {
	waypoints []NodeID
	km        map[pairKey]float64
}

// NewPairwiseTable builds the table from one shortest path tree per waypoint
func NewPairwiseTable(waypoints []NodeID, trees map[NodeID]*ShortestPathTree) *PairwiseTable {
	t := &PairwiseTable{
		waypoints: waypoints,
		km:        make(map[pairKey]float64, len(waypoints)*len(waypoints)),
	}
	for _, from := range waypoints {
		tree := trees[from]
		for _, to := range waypoints {
			if from == to {
				continue
			}
			d := Unreachable
			if tree != nil {
				d = tree.Distance(to)
			}
			t.km[pairKey{from, to}] = d
		}
	}
	return t
}

// At returns the shortest distance from one waypoint to another.
// Pairs outside the table are Unreachable.
func (t *PairwiseTable) At(from, to NodeID) float64 {
	if from == to {
		return 0
	}
	if d, ok := t.km[pairKey{from, to}]; ok {
		return d
	}
	return Unreachable
}

// Waypoints returns the nodes covered by the table
func (t *PairwiseTable) Waypoints() []NodeID { return t.waypoints }
