// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-his/meridian-his/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation   shared.ValidationError
		conflict     shared.ConflictError
		transition   shared.InvalidTransitionError
		precondition shared.PreconditionError
		fieldErrs    validator.ValidationErrors
	)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &validation), errors.As(err, &fieldErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &transition):
		Problem(w, http.StatusConflict, "Invalid State Transition", err.Error())
	case errors.As(err, &precondition):
		Problem(w, http.StatusPreconditionFailed, "Precondition Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
