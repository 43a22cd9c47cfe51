package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/stockdesk/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/sessions/{id}/select, calling PathParam(r, "/api/sessions/", "/select")
// extracts the {id} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix, return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// Error codes carried in ErrorResponse.Code.
const (
	codeInvalidArgument      = "invalid_argument"
	codeNotFound             = "not_found"
	codeInsufficientQuantity = "insufficient_quantity"
	codeInsufficientFunds    = "insufficient_funds"
	codeConflict             = "conflict"
	codeUpstreamUnavailable  = "upstream_unavailable"
	codeStoreUnavailable     = "store_unavailable"
	codeCancelled            = "cancelled"
)

// writeServiceError maps a service error onto a status code and error code.
// Infrastructure failures are logged and answered without internal detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), codeInvalidArgument)
	case errors.Is(err, models.ErrInsufficientQuantity):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), codeInsufficientQuantity)
	case errors.Is(err, models.ErrInsufficientFunds):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), codeInsufficientFunds)
	case errors.Is(err, models.ErrNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), codeNotFound)
	case errors.Is(err, models.ErrConflict):
		WriteErrorWithCode(w, http.StatusConflict, "Concurrent update, please retry", codeConflict)
	case errors.Is(err, models.ErrUpstreamUnavailable):
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Upstream unavailable")
		WriteErrorWithCode(w, http.StatusInternalServerError, "Market data unavailable", codeUpstreamUnavailable)
	case errors.Is(err, context.Canceled):
		s.logger.Debug().Str("path", r.URL.Path).Msg("Request cancelled by client")
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "Request cancelled", codeCancelled)
	case errors.Is(err, models.ErrStoreUnavailable):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Store unavailable")
		WriteErrorWithCode(w, http.StatusInternalServerError, "Storage unavailable", codeStoreUnavailable)
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled service error")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
