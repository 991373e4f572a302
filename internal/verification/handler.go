package verification

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/khidma-co/khidma/pkg/handlers"
	"github.com/khidma-co/khidma/pkg/routes"
)

// Handler provides HTTP endpoints for the verification gate.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "verification"),
	}
}

// Routes returns the route group definition for verification endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/verification",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/issue", Handler: h.Issue},
			{Method: "POST", Pattern: "/check", Handler: h.Check},
		},
	}
}

// Issue delivers a one-time code to the submitted phone.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var cmd IssueCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	if err := h.sys.Issue(r.Context(), cmd.Phone); err != nil {
		h.respondError(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// Check verifies a submitted code and returns the minted session.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var cmd CheckCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	session, err := h.sys.Check(r.Context(), cmd.Phone, cmd.Code)
	if err != nil {
		h.respondError(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var lockout *LockoutError
	if errors.As(err, &lockout) {
		seconds := int(lockout.RetryAfter.Round(time.Second).Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
}
