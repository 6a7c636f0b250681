package services

import (
	"errors"
	"net/http"
)

// Domain error variants surfaced by the payment core. Handlers match on these
// with errors.Is to pick a response code; anything else is treated as an
// opaque store failure.
var (
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidInstallments      = errors.New("invalid installments")
	ErrEmptySplit               = errors.New("at least one split is required")
	ErrInvalidSplitPercentage   = errors.New("invalid split percentage")
	ErrIdempotencyConflict      = errors.New("idempotency key reused with a different payload")
	ErrPaymentNotFound          = errors.New("payment not found")
)

// DomainErrorStatus maps a service error to the HTTP status the adapter layer
// should return. Validation-equivalent errors are caller-fixable bad requests;
// a conflict is surfaced distinctly so callers do not blindly retry with the
// same key.
func DomainErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsupportedPaymentMethod),
		errors.Is(err, ErrInvalidInstallments),
		errors.Is(err, ErrEmptySplit),
		errors.Is(err, ErrInvalidSplitPercentage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
