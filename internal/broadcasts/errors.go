package broadcasts

import (
	"errors"
	"net/http"

	"github.com/khidma-co/khidma/internal/requests"
)

// Domain errors for broadcast operations.
var (
	ErrNotFound        = errors.New("broadcast not found")
	ErrDuplicate       = errors.New("broadcast already recorded")
	ErrValidation      = errors.New("invalid broadcast input")
	ErrTemplateMissing = errors.New("message template not found")
)

// MapHTTPStatus maps broadcast domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTemplateMissing) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, requests.ErrRequestLocked) ||
		errors.Is(err, requests.ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, requests.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
