package providers

import (
	"errors"
	"net/http"
)

// Domain errors for provider operations.
var (
	ErrNotFound   = errors.New("provider not found")
	ErrDuplicate  = errors.New("provider with this CR number or phone already registered")
	ErrValidation = errors.New("invalid provider input")
)

// MapHTTPStatus maps provider domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
