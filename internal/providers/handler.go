package providers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/handlers"
	"github.com/khidma-co/khidma/pkg/pagination"
	"github.com/khidma-co/khidma/pkg/routes"
)

// Handler provides HTTP endpoints for provider governance operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "providers"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for provider endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/providers",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/flags", Handler: h.ListFlags},
			{Method: "GET", Pattern: "/{id}/feedback", Handler: h.ListFeedback},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "", Handler: h.Apply},
			{Method: "POST", Pattern: "/flag", Handler: h.RaiseFlag},
			{Method: "POST", Pattern: "/dispute", Handler: h.RecordDispute},
			{Method: "POST", Pattern: "/feedback", Handler: h.RecordFeedback},
			{Method: "POST", Pattern: "/{id}/reinstate", Handler: h.Reinstate},
		},
	}
}

// List returns a paginated list of providers with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single provider by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	prov, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, prov)
}

// ListFlags returns the governance flag history for a provider.
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	flags, err := h.sys.ListFlags(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, flags)
}

// ListFeedback returns the feedback history for a provider.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	fb, err := h.sys.ListFeedback(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, fb)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching providers.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Apply registers a new provider application.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var cmd ApplyCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	prov, err := h.sys.Apply(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, prov)
}

// RaiseFlag appends a conduct flag against a provider.
func (h *Handler) RaiseFlag(w http.ResponseWriter, r *http.Request) {
	var cmd FlagCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	prov, err := h.sys.RaiseFlag(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, prov)
}

// RecordDispute records a dispute against a provider.
func (h *Handler) RecordDispute(w http.ResponseWriter, r *http.Request) {
	var cmd DisputeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	prov, err := h.sys.RecordDispute(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, prov)
}

// RecordFeedback records a customer rating against a provider.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var cmd FeedbackCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	prov, err := h.sys.RecordFeedback(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, prov)
}

// Reinstate returns an Observed provider to Active standing.
func (h *Handler) Reinstate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	prov, err := h.sys.Reinstate(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, prov)
}
