package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the engine must react to it.
type Kind int

const (
	// KindAuth means the session or token was rejected. Recovered once per
	// call by a token renewal; a second failure requires re-login.
	KindAuth Kind = iota + 1
	// KindRequest means the payload was malformed or unparseable. Never
	// retried, surfaced to the caller.
	KindRequest
	// KindConnection means a timeout or network failure. Mutating calls fall
	// back to the offline queue; the device transitions to Offline.
	KindConnection
	// KindValidation means a business-rule rejection (unbalanced sale,
	// negative payment, invalid line). The caller must correct the input.
	KindValidation
	// KindServer means any other non-OK server response, surfaced verbatim.
	KindServer
)

// String returns a short label for the kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRequest:
		return "request"
	case KindConnection:
		return "connection"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the engine's error type: a kind, an optional server error code,
// a message, and optional per-field validation details.
type AppError struct {
	Kind    Kind         `json:"kind"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Err     error        `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a status code for the local API surface.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindRequest:
		return http.StatusBadRequest
	case KindConnection:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// NewAuthError creates an auth error
func NewAuthError(message string) *AppError {
	return &AppError{Kind: KindAuth, Code: "auth", Message: message}
}

// NewRequestError creates a malformed-request error
func NewRequestError(message string, err error) *AppError {
	return &AppError{Kind: KindRequest, Message: message, Err: err}
}

// NewConnectionError creates a connection error wrapping the transport cause
func NewConnectionError(message string, err error) *AppError {
	return &AppError{Kind: KindConnection, Message: message, Err: err}
}

// NewValidationError creates a validation error with per-field details
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{Kind: KindValidation, Message: "Validation failed", Errors: fieldErrors}
}

// NewServerError creates a server error carrying the server's error code
func NewServerError(code, message string) *AppError {
	return &AppError{Kind: KindServer, Code: code, Message: message}
}

// IsKind checks whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// IsConnection reports whether err is a connection-class error. Connection
// errors are the only class that triggers Offline fallback.
func IsConnection(err error) bool {
	return IsKind(err, KindConnection)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindServer, Message: err.Error(), Err: err}
}
