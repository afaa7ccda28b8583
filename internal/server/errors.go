package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/jonathan/taskhub/internal/preferences"
	"github.com/jonathan/taskhub/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrBodyTooLarge indicates the request body exceeded the size limit
type ErrBodyTooLarge struct {
	Limit int64
}

func (e *ErrBodyTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation   *ErrValidation
		tooLarge     *ErrBodyTooLarge
		unknownTask  *preferences.ErrUnknownTask
		unknownModel *preferences.ErrUnknownModel
		schemaErr    *schemas.ValidationError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &unknownModel), errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.As(err, &unknownTask):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, estimate.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// errorCode returns the machine-readable code sent in the "error" member.
func errorCode(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "body_too_large"
	case http.StatusPaymentRequired:
		return "insufficient_credits"
	default:
		return "internal_error"
	}
}
