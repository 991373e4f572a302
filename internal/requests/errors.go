package requests

import (
	"errors"
	"net/http"
)

// Domain errors for request operations.
var (
	ErrNotFound          = errors.New("request not found")
	ErrDuplicate         = errors.New("request already exists")
	ErrValidation        = errors.New("invalid request input")
	ErrInvalidTransition = errors.New("transition not permitted by lifecycle")
	ErrRequestLocked     = errors.New("request is locked to its assigned provider")
)

// MapHTTPStatus maps request domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrRequestLocked) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
