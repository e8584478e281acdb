package httpapi

import (
	"errors"
	"net/http"

	"review_gateway/internal/apperr"
	"review_gateway/internal/logging"
	"review_gateway/internal/utils"
)

var log = logging.With("httpapi")

// respondError writes err as the standard error envelope. Errors outside the
// application taxonomy are logged and reported as internal.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.As(err); ok {
		if e.Status() >= http.StatusInternalServerError {
			// Causes are not logged; provider errors can echo request URLs.
			log.Error("request failed", "path", r.URL.Path, "code", e.Code)
		}
		utils.RespondWithError(w, e.Status(), e.Code, e.Message)
		return
	}

	log.Error("unexpected error", "path", r.URL.Path, "error", err)
	utils.RespondWithError(w, http.StatusInternalServerError, apperr.CodeInternal, "Internal server error")
}

// decodeBody reads a JSON body, reporting malformed input as a validation error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("Request body is too large")
		}
		return apperr.Validation("Invalid request payload")
	}
	return nil
}
