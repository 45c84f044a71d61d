package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Details string `json:"details,omitempty"`
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrInvalidID    = NewAPIError("INVALID_ID", "Invalid id", http.StatusBadRequest)
	ErrUnauthorized = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden    = NewAPIError("FORBIDDEN", "Not allowed", http.StatusForbidden)
	ErrNotFound     = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal     = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict     = NewAPIError("CONFLICT", "Resource conflict", http.StatusConflict)
)

// Invalid returns a 400 carrying a field-level message.
func Invalid(message string) *APIError {
	return NewAPIError(ErrInvalidInput.Code, message, http.StatusBadRequest)
}

// NotFound returns a 404 naming the missing resource.
func NotFound(resource string) *APIError {
	return NewAPIError(ErrNotFound.Code, resource+" not found", http.StatusNotFound)
}

func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}

// FromMongo maps driver errors onto API errors. resource names the entity
// for not-found messages.
func FromMongo(err error, resource string) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return NotFound(resource)
	}
	if mongo.IsDuplicateKeyError(err) {
		return NewAPIError(ErrConflict.Code, resource+" already exists", http.StatusConflict)
	}
	return Wrap(err, "DB_ERROR", "Database operation failed", http.StatusInternalServerError)
}
