package reference

import (
	"log/slog"
	"net/http"

	"github.com/khidma-co/khidma/pkg/handlers"
	"github.com/khidma-co/khidma/pkg/routes"
)

// Handler provides HTTP endpoints for reference data.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "reference"),
	}
}

// Routes returns the route group definition for reference endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reference",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/services", Handler: h.ListServices},
			{Method: "GET", Pattern: "/areas", Handler: h.ListAreas},
			{Method: "GET", Pattern: "/templates", Handler: h.ListTemplates},
			{Method: "POST", Pattern: "/seed", Handler: h.Seed},
			{Method: "POST", Pattern: "/reset", Handler: h.Reset},
		},
	}
}

// ListServices returns the service catalog.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.sys.ListServices(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, services)
}

// ListAreas returns the coverage areas.
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.sys.ListAreas(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, areas)
}

// ListTemplates returns the broadcast message templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.sys.ListTemplates(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, templates)
}

// Seed installs the built-in defaults without touching existing rows.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Seed(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

// Reset clears all reference rows and reinstalls the defaults.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Reset(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
