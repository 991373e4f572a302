package responses

import (
	"errors"
	"net/http"

	"github.com/khidma-co/khidma/internal/requests"
)

// Domain errors for response operations.
var (
	ErrNotFound     = errors.New("response not found")
	ErrDuplicate    = errors.New("response already recorded")
	ErrValidation   = errors.New("invalid response input")
	ErrNotEligible  = errors.New("response does not hold the eligible slot")
	ErrProviderGone = errors.New("provider not found")
)

// MapHTTPStatus maps response domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrProviderGone) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotEligible) {
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
