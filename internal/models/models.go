package models

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used for route dates
const DateLayout = "2006-01-02"

// Municipality represents a location in the delivery catalog
type Municipality struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Subregion string    `json:"subregion"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Distance represents a road distance between two municipalities.
// The pair is unordered: (A, B) and (B, A) are the same road.
type Distance struct {
	ID            int64     `json:"id"`
	OriginID      int64     `json:"origin_id"`
	DestinationID int64     `json:"destination_id"`
	Km            float64   `json:"km"`
	CreatedAt     time.Time `json:"created_at"`
}

// Pair returns the endpoints with the smaller identifier first
func (d *Distance) Pair() (int64, int64) {
	return OrderedPair(d.OriginID, d.DestinationID)
}

// OrderedPair returns a and b sorted ascending
func OrderedPair(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Route represents a stored delivery route with its optimized visiting order
type Route struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Date            string   `json:"date"`
	OriginID        int64    `json:"origin_id"`
	DestinationID   int64    `json:"destination_id"`
	OriginName      string   `json:"origin_name,omitempty"`
	DestinationName string   `json:"destination_name,omitempty"`
	IntermediateIDs []int64  `json:"intermediate_ids"`
	Sequence        []int64  `json:"sequence"`
	TotalDistanceKm *float64 `json:"total_distance_km"`
	Reachable       bool     `json:"reachable"`
	Strategy        string   `json:"strategy"`
	// RunID identifies the optimization run that produced Sequence
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RouteLeg is one hop between consecutive waypoints of a plan
type RouteLeg struct {
	FromID     int64    `json:"from_id"`
	ToID       int64    `json:"to_id"`
	DistanceKm *float64 `json:"distance_km"`
	// Path lists every municipality traversed, endpoints included
	Path []int64 `json:"path"`
}

// RoutePlan is the outcome of a route optimization
type RoutePlan struct {
	RunID           string     `json:"run_id"`
	Sequence        []int64    `json:"sequence"`
	SequenceNames   []string   `json:"sequence_names"`
	TotalDistanceKm *float64   `json:"total_distance_km"`
	Reachable       bool       `json:"reachable"`
	Strategy        string     `json:"strategy"`
	Legs            []RouteLeg `json:"legs"`
	Cached          bool       `json:"cached"`
}

// GraphNode is a municipality in the route graph view
type GraphNode struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OnRoute bool   `json:"on_route"`
}

// GraphLink is a distance record in the route graph view
type GraphLink struct {
	Source  int64   `json:"source"`
	Target  int64   `json:"target"`
	Km      float64 `json:"km"`
	OnRoute bool    `json:"on_route"`
}

// RouteGraph holds the nodes and links needed to draw a route over the catalog
type RouteGraph struct {
	RouteID int64       `json:"route_id"`
	Nodes   []GraphNode `json:"nodes"`
	Links   []GraphLink `json:"links"`
}

// FiniteKm returns a pointer to km, or nil when km is not a finite number.
// JSON has no representation for infinity, so unreachable totals become null.
func FiniteKm(km float64) *float64 {
	if math.IsInf(km, 0) || math.IsNaN(km) {
		return nil
	}
	v := km
	return &v
}
