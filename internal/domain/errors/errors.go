// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUpstream           = "UPSTREAM_ERROR"
	ErrCodeTransport          = "TRANSPORT_ERROR"
	ErrCodeMalformedReference = "MALFORMED_REFERENCE"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates an error for a sender rejected by the access gate.
// The message is user facing.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(service string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeServiceUnavailable,
		Message:    fmt.Sprintf("%s is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewUpstreamError creates an error for a failing external service (answer
// service, allow-list store). Details carries the human-readable reason
// reported by the service.
func NewUpstreamError(service, details string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeUpstream,
		Message:    fmt.Sprintf("%s request failed", service),
		Details:    details,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewTransportError creates an error for a failed outbound chat operation.
func NewTransportError(operation string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeTransport,
		Message:    fmt.Sprintf("%s failed", operation),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewMalformedReferenceError creates an error for an identifier that could
// not be parsed, such as a sender without a recognizable domain.
func NewMalformedReferenceError(kind, value string) *DomainError {
	return &DomainError{
		Code:       ErrCodeMalformedReference,
		Message:    fmt.Sprintf("malformed %s", kind),
		Details:    value,
		HTTPStatus: http.StatusBadRequest,
	}
}

// IsDomainError checks if the error is a domain error.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

func hasCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

// IsUpstream checks if the error is an upstream service error.
func IsUpstream(err error) bool {
	return hasCode(err, ErrCodeUpstream)
}

// IsTransport checks if the error is a transport error.
func IsTransport(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

// IsMalformedReference checks if the error is a malformed reference error.
func IsMalformedReference(err error) bool {
	return hasCode(err, ErrCodeMalformedReference)
}

// Detail returns the most specific human-readable reason carried by err.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	if domainErr, ok := GetDomainError(err); ok && domainErr.Details != "" {
		return domainErr.Details
	}
	return err.Error()
}
