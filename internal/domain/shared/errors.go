package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
	CodeTenantRequired       = "TENANT_REQUIRED"
	CodeActorRequired        = "ACTOR_REQUIRED"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeInsufficientReserved = "INSUFFICIENT_RESERVED"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")

	// Precondition errors: raised before any storage interaction.
	ErrTenantRequired = NewDomainError(CodeTenantRequired, "No active organization selected")
	ErrActorRequired  = NewDomainError(CodeActorRequired, "User not authenticated")

	// Business-rule conflicts detected by a pre-write check.
	ErrInsufficientStock    = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInsufficientReserved = NewDomainError(CodeInsufficientReserved, "Cannot release more than reserved")
)

// IsPrecondition reports whether err is a missing tenant or actor error
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrTenantRequired) || errors.Is(err, ErrActorRequired)
}

// CodeOf returns the domain error code carried by err, or "" if none
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
