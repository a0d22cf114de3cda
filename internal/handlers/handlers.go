package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
	"github.com/jkfsjkfs/proyecto-rutas/internal/planner"
	"github.com/jkfsjkfs/proyecto-rutas/internal/routing"
)

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB      database.DataStore
	Planner *planner.Planner
	Logger  *zap.Logger

	validate *validator.Validate
	trans    ut.Translator
}

// New creates a Handler with an English-translated validator
func New(db database.DataStore, p *planner.Planner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &Handler{
		DB:       db,
		Planner:  p,
		Logger:   logger,
		validate: validate,
		trans:    trans,
	}
}

// RegisterRoutes mounts the JSON API on r
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Route("/municipalities", func(r chi.Router) {
			r.Get("/", h.HandleListMunicipalities)
			r.Post("/", h.HandleCreateMunicipality)
			r.Get("/{id}", h.HandleGetMunicipality)
			r.Put("/{id}", h.HandleUpdateMunicipality)
			r.Delete("/{id}", h.HandleDeleteMunicipality)
		})

		r.Route("/distances", func(r chi.Router) {
			r.Get("/", h.HandleListDistances)
			r.Post("/", h.HandleUpsertDistance)
			r.Delete("/{originID}/{destinationID}", h.HandleDeleteDistance)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", h.HandleListRoutes)
			r.Post("/", h.HandleCreateRoute)
			r.Post("/optimize", h.HandleOptimizeRoute)
			r.Get("/{id}", h.HandleGetRoute)
			r.Put("/{id}", h.HandleUpdateRoute)
			r.Delete("/{id}", h.HandleDeleteRoute)
			r.Get("/{id}/graph", h.HandleRouteGraph)
		})
	})
}

// ErrResponse is the body of every error reply
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	ErrorText     string   `json:"error,omitempty"` // application-level error message
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      "validation failed",
		ErrValidation:  vv,
	}
}

func ErrNotFound(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrConflict(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		StatusText:     "Conflict.",
		ErrorText:      err.Error(),
	}
}

func ErrUnknownMunicipality(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Unknown municipality.",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
		ErrorText:      "An error occurred. Please try again.",
	}
}

// renderError picks the reply for err. Unexpected errors are logged and
// answered with a generic message.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		render.Render(w, r, ErrNotFound(err))
	case errors.Is(err, database.ErrConflict):
		render.Render(w, r, ErrConflict(err))
	case errors.Is(err, routing.ErrInvalidInput):
		render.Render(w, r, ErrInvalidRequest(err))
	case planner.IsUnknownMunicipality(err):
		render.Render(w, r, ErrUnknownMunicipality(err))
	default:
		h.Logger.Error("[ERROR] internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		render.Render(w, r, ErrInternalServerErrorRend(err))
	}
}

// bind decodes the body into data and validates it. It writes the error
// reply itself and returns false when the request is rejected.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, data render.Binder) bool {
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return false
	}
	if err := h.validate.Struct(data); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			render.Render(w, r, ErrInvalidRequest(err))
			return false
		}
		render.Render(w, r, ErrValidation(err, h.translateError(verrs)))
		return false
	}
	return true
}

func (h *Handler) translateError(verrs validator.ValidationErrors) []error {
	errs := make([]error, 0, len(verrs))
	for _, e := range verrs {
		errs = append(errs, errors.New(e.Translate(h.trans)))
	}
	return errs
}

// idParam parses a positive integer URL parameter
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errInvalidQuery(name, raw)
	}
	return v, nil
}

func errInvalidQuery(name, raw string) error {
	return fmt.Errorf("invalid %s %q", name, raw)
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.HealthCheck(r.Context()); err != nil {
		h.Logger.Warn("[HTTP] health check failed", zap.Error(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unavailable"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
