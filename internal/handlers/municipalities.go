package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
)

// MunicipalityRequest is the body of create and update calls
type MunicipalityRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Subregion string `json:"subregion" validate:"max=100"`
}

func (m *MunicipalityRequest) Bind(r *http.Request) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Subregion = strings.TrimSpace(m.Subregion)
	return nil
}

// MunicipalityListResponse is the body of GET /municipalities
type MunicipalityListResponse struct {
	Municipalities []models.Municipality `json:"municipalities"`
	Total          int                   `json:"total"`
}

// HandleListMunicipalities handles GET /api/v1/municipalities
func (h *Handler) HandleListMunicipalities(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	h.Logger.Debug("[HTTP] list municipalities", zap.String("search", search))

	items, err := h.DB.Municipalities().List(r.Context(), search)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Municipality{}
	}

	render.JSON(w, r, MunicipalityListResponse{Municipalities: items, Total: len(items)})
}

// HandleGetMunicipality handles GET /api/v1/municipalities/{id}
func (h *Handler) HandleGetMunicipality(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	m, err := h.DB.Municipalities().GetByID(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, m)
}

// HandleCreateMunicipality handles POST /api/v1/municipalities
func (h *Handler) HandleCreateMunicipality(w http.ResponseWriter, r *http.Request) {
	var req MunicipalityRequest
	if !h.bind(w, r, &req) {
		return
	}

	created, err := h.DB.Municipalities().Create(r.Context(), &models.Municipality{
		Name:      req.Name,
		Subregion: req.Subregion,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Logger.Info("[HTTP] municipality created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

// HandleUpdateMunicipality handles PUT /api/v1/municipalities/{id}
func (h *Handler) HandleUpdateMunicipality(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	var req MunicipalityRequest
	if !h.bind(w, r, &req) {
		return
	}

	updated, err := h.DB.Municipalities().Update(r.Context(), &models.Municipality{
		ID:        id,
		Name:      req.Name,
		Subregion: req.Subregion,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, updated)
}

// HandleDeleteMunicipality handles DELETE /api/v1/municipalities/{id}.
// Distances touching the municipality go with it; routes that use it block the delete.
func (h *Handler) HandleDeleteMunicipality(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := h.DB.Municipalities().Delete(r.Context(), id); err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Logger.Info("[HTTP] municipality deleted", zap.Int64("id", id))
	render.NoContent(w, r)
}
