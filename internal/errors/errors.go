package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskcrew/taskbot/internal/services"
)

// Error codes
const (
	// Authentication / authorization
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"

	// Validation
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidStatus   = "INVALID_STATUS"
	ErrCodeEmptyAssignment = "EMPTY_ASSIGNMENT"

	// Resources
	ErrCodeNotFound = "NOT_FOUND"

	// Service
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}

// FromService maps a service error onto the HTTP taxonomy. Unrecognized
// errors become 500s without leaking internals.
func FromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidStatus):
		RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidStatus, err.Error()))
	case errors.Is(err, services.ErrEmptyAssignment):
		RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeEmptyAssignment, err.Error()))
	case errors.Is(err, services.ErrNoUsersProvided), errors.Is(err, services.ErrUnknownDept):
		BadRequest(c, err.Error())
	default:
		InternalError(c, "")
	}
}
