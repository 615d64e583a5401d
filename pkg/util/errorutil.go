package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewTransportError wraps a failed message delivery. Delivery is best-effort,
// so callers log these instead of failing the session.
func NewTransportError(op string, err error) error {
	return &DomainError{
		Code:       "TRANSPORT_FAILED",
		Message:    fmt.Sprintf("transport %s failed", op),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewStoreError wraps a persistence failure. These must reach the caller:
// silently losing ticket or session state breaks the one-open-ticket invariant.
func NewStoreError(op string, err error) error {
	return &DomainError{
		Code:       "STORE_FAILED",
		Message:    fmt.Sprintf("store %s failed", op),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewClassifierError wraps a failed NLP call. Callers degrade to safe defaults.
func NewClassifierError(kind string, err error) error {
	return &DomainError{
		Code:       "CLASSIFIER_FAILED",
		Message:    fmt.Sprintf("classifier %s failed", kind),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
