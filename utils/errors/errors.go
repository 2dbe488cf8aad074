package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError is one violated field of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns the error message
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Message)
		}
		return fmt.Sprintf("%s: %s", e.Code, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so that wrapped or re-created errors still compare
// equal to the sentinels below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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

// NewValidationError reports every violated field at once.
func NewValidationError(fields ...FieldError) *APIError {
	return &APIError{
		Code:    ErrValidation.Code,
		Message: ErrValidation.Message,
		Status:  ErrValidation.Status,
		Fields:  fields,
	}
}

var (
	ErrInvalidInput   = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrValidation     = NewAPIError("VALIDATION_ERROR", "Some fields are invalid", http.StatusBadRequest)
	ErrUnauthorized   = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrAuthentication = NewAPIError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	ErrForbidden      = NewAPIError("FORBIDDEN", "You must own a store in order to edit it", http.StatusForbidden)
	ErrNotFound       = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrDuplicateEmail = NewAPIError("DUPLICATE_EMAIL", "That email is already registered", http.StatusConflict)
	ErrDuplicateSlug  = NewAPIError("DUPLICATE_SLUG", "Could not pick a unique address for that store name", http.StatusConflict)
	ErrUploadRejected = NewAPIError("UPLOAD_REJECTED", "File type isn't allowed", http.StatusBadRequest)
	ErrInternal       = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}
