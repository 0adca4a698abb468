// Package errors defines the structured error responses rendered at the HTTP
// boundary.
package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrNotFound       = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")

	// ErrNoSnapshot is returned while no refresh cycle has completed yet.
	ErrNoSnapshot = New(http.StatusServiceUnavailable, "NO_SNAPSHOT", "No attendance data available yet")
)

// ErrValidation creates a validation error with field details.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		map[string]string{"field": field, "message": message})
}

// StudentNotFoundError creates a not-found error for an unknown roll number.
func StudentNotFoundError(roll string) *APIError {
	return NewWithDetails(http.StatusNotFound, "STUDENT_NOT_FOUND",
		fmt.Sprintf("No student with roll %s", roll), roll)
}

// CycleFailedError surfaces a failed refresh cycle to the caller. The cycle
// error replaces the data until the next cycle succeeds.
func CycleFailedError(err error) *APIError {
	return NewWithDetails(http.StatusServiceUnavailable, "REFRESH_CYCLE_FAILED",
		"Latest refresh cycle failed", err.Error())
}

// ExportFailedError reports a failed roster export.
func ExportFailedError(err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "EXPORT_FAILED",
		"Failed to generate export", err.Error())
}

// RenderError writes an APIError response, falling back to a generic 500 for
// unrecognized error values.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR",
			"Internal server error", err.Error())
	}
	render.Status(r, apiErr.StatusCode)
	render.JSON(w, r, map[string]interface{}{
		"success": false,
		"error":   apiErr,
	})
}
