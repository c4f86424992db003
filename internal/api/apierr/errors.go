package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bracketlab/draftsync/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotAuthenticated  = "NOT_AUTHENTICATED"
	CodeNotDraftOwner     = "NOT_DRAFT_OWNER"
	CodeDraftNotFound     = "DRAFT_NOT_FOUND"
	CodeDraftCompleted    = "DRAFT_COMPLETED"
	CodeEmptyName         = "EMPTY_NAME"
	CodeNoConflict        = "NO_CONFLICT"
	CodeCacheFailure      = "CACHE_FAILURE"
	CodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeNotAuthenticated, "No owner identity provided"}}
	case errors.Is(err, model.ErrNotDraftOwner):
		return &httpError{http.StatusForbidden, APIError{CodeNotDraftOwner, "Draft belongs to another owner"}}
	case errors.Is(err, model.ErrDraftNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeDraftNotFound, "Draft not found"}}
	case errors.Is(err, model.ErrDraftCompleted):
		return &httpError{http.StatusConflict, APIError{CodeDraftCompleted, "Draft is already completed"}}
	case errors.Is(err, model.ErrEmptyName):
		return &httpError{http.StatusBadRequest, APIError{CodeEmptyName, "Draft name must not be empty"}}
	case errors.Is(err, model.ErrNoConflict):
		return &httpError{http.StatusConflict, APIError{CodeNoConflict, "Draft is not in conflict state"}}
	case errors.Is(err, model.ErrCacheFailure):
		return &httpError{http.StatusInternalServerError, APIError{CodeCacheFailure, "Local draft storage failed"}}
	case errors.Is(err, model.ErrRemoteUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeRemoteUnavailable, "Remote draft store unavailable, changes queued locally"}}
	}

	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates a not-authenticated error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeNotAuthenticated, "No owner identity provided"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
