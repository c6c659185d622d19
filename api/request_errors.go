package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ericfitz/storefront/internal/schema"
	"github.com/ericfitz/storefront/internal/slogging"
)

// Error is the JSON body of every error response
type Error struct {
	Error            string        `json:"error"`
	ErrorDescription string        `json:"error_description"`
	Details          *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails provides structured context for errors
type ErrorDetails struct {
	Code       *string            `json:"code,omitempty"`
	Context    map[string]any     `json:"context,omitempty"`
	Suggestion *string            `json:"suggestion,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

// RequestError represents an error that should be returned as an HTTP response
type RequestError struct {
	Status  int
	Code    string
	Message string
	Details *ErrorDetails
}

func (e *RequestError) Error() string {
	return e.Message
}

// HandleRequestError sends an appropriate HTTP error response. Validation
// failures and missing schemas are mapped to their request errors; anything
// else is a server error.
func HandleRequestError(c *gin.Context, err error) {
	var reqErr *RequestError
	var validationErr *schema.ValidationError

	switch {
	case errors.As(err, &reqErr):
	case errors.As(err, &validationErr):
		reqErr = ValidationFailedError(validationErr)
	case errors.Is(err, schema.ErrSchemaNotFound):
		reqErr = NotFoundError(err.Error())
	default:
		slogging.FromGin(c).Error("Unhandled request error: %v", err)
		reqErr = ServerError("Internal server error: " + truncateBeforeStackTrace(err.Error()))
	}

	if reqErr.Status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}

	c.AbortWithStatusJSON(reqErr.Status, Error{
		Error:            reqErr.Code,
		ErrorDescription: reqErr.Message,
		Details:          reqErr.Details,
	})
}

// InvalidInputError creates a RequestError for malformed requests
func InvalidInputError(message string) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_input",
		Message: message,
	}
}

// ValidationFailedError carries every violation of a rejected input
func ValidationFailedError(err *schema.ValidationError) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Code:    "validation_failed",
		Message: "Request validation failed",
		Details: &ErrorDetails{
			Context:    map[string]any{"schema": err.Schema},
			Violations: err.Violations,
		},
	}
}

// NotFoundError creates a RequestError for resource not found
func NotFoundError(message string) *RequestError {
	return &RequestError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: message,
	}
}

// UnauthorizedError creates a RequestError for missing or bad credentials
func UnauthorizedError(message string) *RequestError {
	return &RequestError{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: message,
	}
}

// ForbiddenError creates a RequestError for forbidden access
func ForbiddenError(message string) *RequestError {
	return &RequestError{
		Status:  http.StatusForbidden,
		Code:    "forbidden",
		Message: message,
	}
}

// ServerError creates a RequestError for internal server errors
func ServerError(message string) *RequestError {
	return &RequestError{
		Status:  http.StatusInternalServerError,
		Code:    "server_error",
		Message: message,
	}
}

// truncateBeforeStackTrace keeps stack traces out of response bodies (CWE-209)
func truncateBeforeStackTrace(errMsg string) string {
	if errMsg == "" {
		return "Unknown error"
	}

	for _, marker := range []string{"\nStack trace:", "goroutine "} {
		if idx := strings.Index(errMsg, marker); idx != -1 {
			return strings.TrimSpace(errMsg[:idx])
		}
	}
	return errMsg
}
