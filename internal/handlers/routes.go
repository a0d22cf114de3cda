package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
	"github.com/jkfsjkfs/proyecto-rutas/internal/planner"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OptimizeRequest names the waypoints of a route. At most 50 intermediate
// municipalities are accepted.
type OptimizeRequest struct {
	OriginID        int64   `json:"origin_id" validate:"required,gt=0"`
	DestinationID   int64   `json:"destination_id" validate:"required,gt=0"`
	IntermediateIDs []int64 `json:"intermediate_ids" validate:"max=50,dive,gt=0"`
}

func (o *OptimizeRequest) Bind(r *http.Request) error {
	return nil
}

func (o *OptimizeRequest) planRequest() planner.PlanRequest {
	return planner.PlanRequest{
		OriginID:        o.OriginID,
		DestinationID:   o.DestinationID,
		IntermediateIDs: o.IntermediateIDs,
	}
}

// RouteRequest is the body of route create and update calls
type RouteRequest struct {
	Name string `json:"name" validate:"required,min=10,max=200"`
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	OptimizeRequest
}

func (rr *RouteRequest) Bind(r *http.Request) error {
	rr.Name = strings.TrimSpace(rr.Name)
	rr.Date = strings.TrimSpace(rr.Date)
	return rr.OptimizeRequest.Bind(r)
}

func (rr *RouteRequest) input() planner.RouteInput {
	return planner.RouteInput{
		Name:        rr.Name,
		Date:        rr.Date,
		PlanRequest: rr.planRequest(),
	}
}

// RouteListResponse is the body of GET /routes
type RouteListResponse struct {
	Routes []models.Route `json:"routes"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// HandleListRoutes handles GET /api/v1/routes
func (h *Handler) HandleListRoutes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	items, total, err := h.DB.Routes().List(r.Context(), limit, offset)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Route{}
	}

	render.JSON(w, r, RouteListResponse{Routes: items, Total: total, Limit: limit, Offset: offset})
}

// HandleGetRoute handles GET /api/v1/routes/{id}
func (h *Handler) HandleGetRoute(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	route, err := h.DB.Routes().GetByID(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, route)
}

// HandleCreateRoute handles POST /api/v1/routes.
// The route is optimized before it is stored.
func (h *Handler) HandleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !h.bind(w, r, &req) {
		return
	}

	route, err := h.Planner.CreateRoute(r.Context(), req.input())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Logger.Info("[HTTP] route created",
		zap.Int64("id", route.ID),
		zap.Int64s("sequence", route.Sequence),
		zap.Bool("reachable", route.Reachable))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, route)
}

// HandleUpdateRoute handles PUT /api/v1/routes/{id}
func (h *Handler) HandleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	var req RouteRequest
	if !h.bind(w, r, &req) {
		return
	}

	route, err := h.Planner.UpdateRoute(r.Context(), id, req.input())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, route)
}

// HandleDeleteRoute handles DELETE /api/v1/routes/{id}
func (h *Handler) HandleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := h.DB.Routes().Delete(r.Context(), id); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// HandleRouteGraph handles GET /api/v1/routes/{id}/graph
func (h *Handler) HandleRouteGraph(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	graph, err := h.Planner.RouteGraph(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, graph)
}

// HandleOptimizeRoute handles POST /api/v1/routes/optimize.
// It previews an optimization without storing anything.
func (h *Handler) HandleOptimizeRoute(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !h.bind(w, r, &req) {
		return
	}

	plan, err := h.Planner.Plan(r.Context(), req.planRequest())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, plan)
}
