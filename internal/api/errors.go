// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/backend"
	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/render"
	"github.com/chemvis/dashboard/internal/upload"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewPayloadTooLargeError creates a 413 error
func NewPayloadTooLargeError(message string) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "PAYLOAD_TOO_LARGE",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadGatewayError creates a 502 error for failures of the equipment API
func NewBadGatewayError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadGateway,
		Code:    "BAD_GATEWAY",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// fromDashboardError maps an error returned by a dashboard operation to
// an API error. fallback is the message used for backend errors without
// one of their own.
func fromDashboardError(err error, fallback string) *APIError {
	var backendErr *backend.Error
	switch {
	case errors.Is(err, dashboard.ErrNotAuthenticated):
		return NewUnauthorizedError("not logged in")
	case errors.Is(err, dashboard.ErrNoActiveDataset):
		return NewConflictError("no dataset on display")
	case errors.Is(err, dashboard.ErrNoChart), errors.Is(err, render.ErrEmptyChart):
		return NewNotFoundError("chart")
	case errors.Is(err, upload.ErrTooLarge):
		return NewPayloadTooLargeError(err.Error())
	case errors.Is(err, upload.ErrUnsupportedType), errors.Is(err, upload.ErrEmptyFile):
		return NewBadRequestError(err.Error(), nil)
	case backend.IsUnauthorized(err):
		return NewUnauthorizedError(dashboard.MsgSessionExpired)
	case backend.IsTransport(err):
		return NewBadGatewayError(dashboard.MsgConnectionFailed, err)
	case errors.As(err, &backendErr):
		apiErr := NewBadGatewayError(backend.Message(err, fallback), nil)
		if backendErr.Status >= 400 && backendErr.Status < 500 {
			apiErr.Status = http.StatusUnprocessableEntity
			apiErr.Code = "REJECTED"
		}
		return apiErr
	default:
		return NewInternalError(fallback, err)
	}
}

// NewErrorHandler returns an echo error handler that renders every error
// as an APIError. Unexpected errors are logged and their details withheld.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(logger)
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError

		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			logger.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "An unexpected error occurred",
			}
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}
