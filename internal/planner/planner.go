package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
	"github.com/jkfsjkfs/proyecto-rutas/internal/routing"
)

const DefaultCacheSize = 256

// CacheRecorder counts plan cache lookups
type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) CacheHit()  {}
func (nopCacheRecorder) CacheMiss() {}

// PlanRequest names the waypoints of a route by municipality id
type PlanRequest struct {
	OriginID        int64
	DestinationID   int64
	IntermediateIDs []int64
}

// RouteInput is the user-supplied part of a stored route
type RouteInput struct {
	Name string
	// Date is YYYY-MM-DD; empty means today
	Date string
	PlanRequest
}

type cacheKey struct {
	version     uint64
	origin      int64
	destination int64
	stops       string
}

// Planner loads the road network from storage, runs the optimizer and
// persists routes with their optimized order
type Planner struct {
	store     database.DataStore
	optimizer *routing.Optimizer
	cache     *lru.Cache[cacheKey, *models.RoutePlan]
	recorder  CacheRecorder
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Planner)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Planner) { p.tracer = tp.Tracer("github.com/jkfsjkfs/proyecto-rutas/internal/planner") }
}

func WithCacheRecorder(r CacheRecorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// WithClock replaces time.Now for default route dates
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a Planner whose result cache holds cacheSize plans
func New(store database.DataStore, optimizer *routing.Optimizer, cacheSize int, opts ...Option) (*Planner, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *models.RoutePlan](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}

	p := &Planner{
		store:     store,
		optimizer: optimizer,
		cache:     cache,
		recorder:  nopCacheRecorder{},
		tracer:    noop.NewTracerProvider().Tracer(""),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Plan computes the optimized order for req. Plans are cached until the
// catalog changes.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*models.RoutePlan, error) {
	ctx, span := p.tracer.Start(ctx, "planner.Plan", trace.WithAttributes(
		attribute.Int64("route.origin_id", req.OriginID),
		attribute.Int64("route.destination_id", req.DestinationID),
		attribute.Int("route.intermediates", len(req.IntermediateIDs)),
	))
	defer span.End()

	plan, err := p.plan(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("route.strategy", plan.Strategy),
		attribute.Bool("route.reachable", plan.Reachable),
		attribute.Bool("route.cached", plan.Cached),
	)
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, req PlanRequest) (*models.RoutePlan, error) {
	if err := checkIDs(req); err != nil {
		return nil, err
	}

	key := newCacheKey(p.store.Distances().Version(), req)
	if cached, ok := p.cache.Get(key); ok {
		p.recorder.CacheHit()
		out := *cached
		out.Cached = true
		return &out, nil
	}
	p.recorder.CacheMiss()

	names, err := p.lookupNames(ctx, req)
	if err != nil {
		return nil, err
	}

	distances, err := p.store.Distances().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load distances: %w", err)
	}
	edges := make([]routing.Edge, len(distances))
	for i, d := range distances {
		edges[i] = routing.Edge{From: d.OriginID, To: d.DestinationID, Km: d.Km}
	}

	result, err := p.optimizer.Optimize(ctx, routing.Request{
		Edges:         edges,
		Origin:        req.OriginID,
		Destination:   req.DestinationID,
		Intermediates: req.IntermediateIDs,
	})
	if err != nil {
		return nil, err
	}

	plan := &models.RoutePlan{
		RunID:           uuid.NewString(),
		Sequence:        result.Sequence,
		SequenceNames:   make([]string, len(result.Sequence)),
		TotalDistanceKm: models.FiniteKm(result.TotalKm),
		Reachable:       result.Reachable,
		Strategy:        string(result.Strategy),
		Legs:            make([]models.RouteLeg, len(result.Legs)),
	}
	for i, id := range result.Sequence {
		plan.SequenceNames[i] = names[id]
	}
	for i, leg := range result.Legs {
		plan.Legs[i] = models.RouteLeg{
			FromID:     leg.From,
			ToID:       leg.To,
			DistanceKm: models.FiniteKm(routing.RoundKm(leg.Km)),
			Path:       leg.Path,
		}
	}

	p.cache.Add(key, plan)
	p.logger.Info("[PLANNER] route planned",
		zap.String("run_id", plan.RunID),
		zap.Int64s("sequence", plan.Sequence),
		zap.Bool("reachable", plan.Reachable),
		zap.String("strategy", plan.Strategy))

	out := *plan
	return &out, nil
}

func checkIDs(req PlanRequest) error {
	if req.OriginID <= 0 {
		return &routing.InputError{Field: "origin_id", Reason: "is required"}
	}
	if req.DestinationID <= 0 {
		return &routing.InputError{Field: "destination_id", Reason: "is required"}
	}
	for i, id := range req.IntermediateIDs {
		if id <= 0 {
			return &routing.InputError{Field: fmt.Sprintf("intermediate_ids[%d]", i), Reason: "must be a positive id"}
		}
	}
	return nil
}

// lookupNames returns the name of every waypoint, failing on unknown ids
func (p *Planner) lookupNames(ctx context.Context, req PlanRequest) (map[int64]string, error) {
	ids := waypointIDs(req)
	found, err := p.store.Municipalities().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load municipalities: %w", err)
	}

	names := make(map[int64]string, len(found))
	for _, m := range found {
		names[m.ID] = m.Name
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &UnknownMunicipalityError{IDs: missing}
	}
	return names, nil
}

func waypointIDs(req PlanRequest) []int64 {
	ids := append([]int64{req.OriginID, req.DestinationID}, req.IntermediateIDs...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func newCacheKey(version uint64, req PlanRequest) cacheKey {
	stops := slices.Clone(req.IntermediateIDs)
	slices.Sort(stops)
	stops = slices.Compact(stops)

	var b strings.Builder
	for i, id := range stops {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return cacheKey{
		version:     version,
		origin:      req.OriginID,
		destination: req.DestinationID,
		stops:       b.String(),
	}
}

// normalizeStops drops repeated intermediates and those equal to an
// endpoint, keeping the order they were given in
func normalizeStops(req PlanRequest) []int64 {
	seen := map[int64]bool{req.OriginID: true, req.DestinationID: true}
	out := []int64{}
	for _, id := range req.IntermediateIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// CreateRoute optimizes input and stores it as a new route
func (p *Planner) CreateRoute(ctx context.Context, input RouteInput) (*models.Route, error) {
	route, err := p.buildRoute(ctx, input)
	if err != nil {
		return nil, err
	}

	created, err := p.store.Routes().Create(ctx, route)
	if err != nil {
		return nil, fmt.Errorf("failed to save route: %w", err)
	}
	return created, nil
}

// UpdateRoute re-optimizes an existing route with new input
func (p *Planner) UpdateRoute(ctx context.Context, id int64, input RouteInput) (*models.Route, error) {
	existing, err := p.store.Routes().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	route, err := p.buildRoute(ctx, input)
	if err != nil {
		return nil, err
	}
	route.ID = existing.ID

	updated, err := p.store.Routes().Update(ctx, route)
	if err != nil {
		return nil, fmt.Errorf("failed to save route: %w", err)
	}
	return updated, nil
}

func (p *Planner) buildRoute(ctx context.Context, input RouteInput) (*models.Route, error) {
	plan, err := p.Plan(ctx, input.PlanRequest)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date == "" {
		date = p.now().Format(models.DateLayout)
	}

	return &models.Route{
		Name:            input.Name,
		Date:            date,
		OriginID:        input.OriginID,
		DestinationID:   input.DestinationID,
		IntermediateIDs: normalizeStops(input.PlanRequest),
		Sequence:        plan.Sequence,
		TotalDistanceKm: plan.TotalDistanceKm,
		Reachable:       plan.Reachable,
		Strategy:        plan.Strategy,
		RunID:           plan.RunID,
	}, nil
}

// RouteGraph returns the whole catalog as a graph with the stored route
// highlighted. Links are highlighted along the shortest path of every leg.
func (p *Planner) RouteGraph(ctx context.Context, id int64) (*models.RouteGraph, error) {
	ctx, span := p.tracer.Start(ctx, "planner.RouteGraph", trace.WithAttributes(attribute.Int64("route.id", id)))
	defer span.End()

	route, err := p.store.Routes().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	municipalities, err := p.store.Municipalities().List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load municipalities: %w", err)
	}
	distances, err := p.store.Distances().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load distances: %w", err)
	}

	edges := make([]routing.Edge, len(distances))
	for i, d := range distances {
		edges[i] = routing.Edge{From: d.OriginID, To: d.DestinationID, Km: d.Km}
	}
	g, err := routing.BuildGraph(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	onRoute := make(map[int64]bool, len(route.Sequence))
	for _, mid := range route.Sequence {
		onRoute[mid] = true
	}
	onPath := make(map[[2]int64]bool)
	for i := 1; i < len(route.Sequence); i++ {
		path := routing.ShortestPaths(g, route.Sequence[i-1]).PathTo(route.Sequence[i])
		for j := 1; j < len(path); j++ {
			a, b := models.OrderedPair(path[j-1], path[j])
			onPath[[2]int64{a, b}] = true
		}
	}

	graph := &models.RouteGraph{
		RouteID: route.ID,
		Nodes:   make([]models.GraphNode, len(municipalities)),
		Links:   make([]models.GraphLink, len(distances)),
	}
	for i, m := range municipalities {
		graph.Nodes[i] = models.GraphNode{ID: m.ID, Name: m.Name, OnRoute: onRoute[m.ID]}
	}
	for i, d := range distances {
		a, b := d.Pair()
		graph.Links[i] = models.GraphLink{
			Source:  d.OriginID,
			Target:  d.DestinationID,
			Km:      d.Km,
			OnRoute: onPath[[2]int64{a, b}],
		}
	}
	return graph, nil
}

// IsUnknownMunicipality reports whether err names missing municipalities
func IsUnknownMunicipality(err error) bool {
	var target *UnknownMunicipalityError
	return errors.As(err, &target)
}
