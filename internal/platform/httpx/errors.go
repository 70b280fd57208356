package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/zinsbuch/zinsbuch/internal/money"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unexpected errors are logged and hidden behind a generic 500.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rerr *money.ReconcileError
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrOwnership):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &rerr):
		Problem(w, http.StatusUnprocessableEntity, "Reconciliation Failed", err.Error())
	default:
		if logger != nil {
			logger.Error("unhandled request error", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
