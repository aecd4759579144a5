package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/coquo/internal/orchestrator"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteCommandError maps orchestrator command errors onto HTTP status codes.
// Client usage errors are 4xx; anything unrecognized is a 500.
func WriteCommandError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrDuplicateRecipe):
		return WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrNoFixFlagSelected),
		errors.Is(err, orchestrator.ErrEmptyTargetSet),
		errors.Is(err, orchestrator.ErrInvalidJobState),
		errors.Is(err, orchestrator.ErrJobNotRunning),
		errors.Is(err, orchestrator.ErrCannotResume):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case strings.Contains(err.Error(), "not found"):
		return WriteError(w, http.StatusNotFound, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
