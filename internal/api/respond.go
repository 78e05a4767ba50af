package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hemovida/donation-scheduling/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the error taxonomy onto HTTP. Eligibility failures
// carry the next-eligible date through to the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, scheduling.ErrValidation):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, scheduling.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, scheduling.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, scheduling.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, scheduling.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_status_transition"
	case errors.Is(err, scheduling.ErrStorage):
		status, code = http.StatusServiceUnavailable, "storage_unavailable"
	}

	resp := ErrorResponse{Error: code, Details: err.Error()}
	if next, ok := scheduling.NextEligibleDateOf(err); ok {
		resp.NextEligibleDate = next.UTC().Format(dateFormat)
	}
	writeJSON(w, status, resp)
}
