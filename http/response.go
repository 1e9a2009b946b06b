package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mkravets/filevault"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the appropriate error response based on error kind.
// Access-denied and not-found stay distinct: a foreign file is a 403, a
// missing one a 404.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, filevault.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
		return
	}

	if errors.Is(err, filevault.ErrAccessDenied) {
		WriteError(w, http.StatusForbidden, "access_denied", "You don't have access to this file")
		return
	}

	if errors.Is(err, filevault.ErrUnauthorized) {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if errors.Is(err, filevault.ErrInvalidInput) {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid input")
		return
	}

	if errors.Is(err, filevault.ErrConflict) {
		WriteError(w, http.StatusConflict, "conflict", "Resource conflict")
		return
	}

	// ErrUnknownUser and everything else: internal error
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
