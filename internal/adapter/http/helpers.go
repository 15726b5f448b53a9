package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// maxBodyBytes caps request body size for JSON endpoints.
const maxBodyBytes = 1 << 20

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeCallError maps the call error taxonomy onto HTTP status codes.
func writeCallError(w http.ResponseWriter, err error) {
	var (
		dupCall  *call.DuplicateCallIDError
		unknown  *call.UnknownCallIDError
		badTrans *call.InvalidTransitionError
		badData  *call.InvalidTransitionDataError
		stale    *call.StaleResponseError
		dupResp  *call.DuplicateResponseError
	)
	switch {
	case errors.As(err, &dupCall):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &badTrans), errors.As(err, &badData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &stale):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &dupResp):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
