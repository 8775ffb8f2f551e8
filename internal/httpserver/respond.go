package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope — the "{error}" shape
// from spec.md §4.6's safe-action result sum type.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondError writes a JSON error response using the canonical
// client-facing string; callers must already have mapped any typed error
// through apperr before reaching here (spec.md §4.6 step 8-9, §7 hygiene
// invariant).
func RespondError(w http.ResponseWriter, status int, message string) {
	Respond(w, status, ErrorResponse{Error: message})
}

// FieldErrorsResponse is the "{fieldErrors}" shape from spec.md §4.6's
// result sum type.
type FieldErrorsResponse struct {
	FieldErrors map[string]string `json:"fieldErrors"`
}

func RespondFieldErrors(w http.ResponseWriter, fieldErrors map[string]string) {
	Respond(w, http.StatusUnprocessableEntity, FieldErrorsResponse{FieldErrors: fieldErrors})
}
