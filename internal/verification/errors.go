package verification

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors for the verification gate.
var (
	ErrValidation  = errors.New("invalid verification input")
	ErrCodeExpired = errors.New("no outstanding code for this phone")
	ErrCodeInvalid = errors.New("code does not match")
	ErrLockedOut   = errors.New("verification attempts exhausted")
)

// LockoutError carries the remaining lockout duration so callers can
// surface a retry-after to the end user. It matches ErrLockedOut under
// errors.Is.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("verification attempts exhausted, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Is(target error) bool {
	return target == ErrLockedOut
}

// MapHTTPStatus maps verification errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrLockedOut):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrCodeInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
