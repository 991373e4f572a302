package ops

import (
	"log/slog"
	"net/http"

	"github.com/khidma-co/khidma/pkg/handlers"
	"github.com/khidma-co/khidma/pkg/routes"
)

// Handler provides HTTP endpoints for the operational dashboards.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "ops"),
	}
}

// Routes returns the route group definition for ops endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/ops",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/dashboard", Handler: h.Dashboard},
			{Method: "GET", Pattern: "/snapshot", Handler: h.Snapshot},
		},
	}
}

// Dashboard computes and returns all five operational views.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.sys.Dashboard(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, dash)
}

// Snapshot returns the raw ledger view the dashboards are computed from.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sys.Snapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, snap)
}
