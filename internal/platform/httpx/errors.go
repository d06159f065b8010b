package httpx

import (
	"errors"
	"net/http"

	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Denied lookups surface as 404 via shared.ErrNotFound before they reach
// this mapping, so a 403 here never leaks the existence of another
// tenant's data.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden),
		errors.Is(err, shared.ErrCrossTenantForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrInvalidParent):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Parent", err.Error())
	case errors.Is(err, shared.ErrRoleInUse),
		errors.Is(err, shared.ErrRoleHasDependents),
		errors.Is(err, shared.ErrDuplicatePermission):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
