package handlers

import (
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
	"github.com/jkfsjkfs/proyecto-rutas/internal/planner"
)

// DistanceRequest is the body of POST /distances
type DistanceRequest struct {
	OriginID      int64    `json:"origin_id" validate:"required,gt=0"`
	DestinationID int64    `json:"destination_id" validate:"required,gt=0,nefield=OriginID"`
	Km            *float64 `json:"km" validate:"required,gte=0"`
}

func (d *DistanceRequest) Bind(r *http.Request) error {
	return nil
}

// DistanceListResponse is the body of GET /distances
type DistanceListResponse struct {
	Distances []models.Distance `json:"distances"`
	Total     int               `json:"total"`
}

// HandleListDistances handles GET /api/v1/distances.
// An optional municipality_id narrows the list to distances touching it.
func (h *Handler) HandleListDistances(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if raw := r.URL.Query().Get("municipality_id"); raw != "" {
		id, err := queryInt(r, "municipality_id", 0)
		if err != nil || id == 0 {
			render.Render(w, r, ErrInvalidRequest(errInvalidQuery("municipality_id", raw)))
			return
		}
		ids = []int64{int64(id)}
	}

	items, err := h.DB.Distances().ListEdges(r.Context(), ids)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Distance{}
	}

	render.JSON(w, r, DistanceListResponse{Distances: items, Total: len(items)})
}

// HandleUpsertDistance handles POST /api/v1/distances.
// Writing (B, A) replaces an existing (A, B).
func (h *Handler) HandleUpsertDistance(w http.ResponseWriter, r *http.Request) {
	var req DistanceRequest
	if !h.bind(w, r, &req) {
		return
	}

	found, err := h.DB.Municipalities().GetByIDs(r.Context(), []int64{req.OriginID, req.DestinationID})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if missing := missingIDs([]int64{req.OriginID, req.DestinationID}, found); len(missing) > 0 {
		h.renderError(w, r, &planner.UnknownMunicipalityError{IDs: missing})
		return
	}

	d, err := h.DB.Distances().Upsert(r.Context(), &models.Distance{
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		Km:            *req.Km,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Logger.Info("[HTTP] distance saved",
		zap.Int64("origin_id", d.OriginID),
		zap.Int64("destination_id", d.DestinationID),
		zap.Float64("km", d.Km))
	render.JSON(w, r, d)
}

// HandleDeleteDistance handles DELETE /api/v1/distances/{originID}/{destinationID}
func (h *Handler) HandleDeleteDistance(w http.ResponseWriter, r *http.Request) {
	a, err := idParam(r, "originID")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	b, err := idParam(r, "destinationID")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := h.DB.Distances().Delete(r.Context(), a, b); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func missingIDs(want []int64, found []models.Municipality) []int64 {
	seen := make(map[int64]bool, len(found))
	for _, m := range found {
		seen[m.ID] = true
	}
	var missing []int64
	for _, id := range want {
		if !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	return missing
}
