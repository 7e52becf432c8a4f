package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors domain services may wrap to pick a status code.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	// ErrLocked marks mutations rejected because the target record is
	// frozen, such as imported ledger rows.
	ErrLocked = errors.New("record locked")
)

// RespondError maps domain errors to problem responses. Anything not
// wrapping a sentinel is reported as an internal error without detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrLocked):
		Problem(w, http.StatusConflict, "Locked", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
