package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error by the condition that produced it
type ErrorKind string

const (
	// KindValidation is a malformed or missing input at construction time
	KindValidation ErrorKind = "VALIDATION"
	// KindInvariant is an operation that would break a structural rule
	KindInvariant ErrorKind = "INVARIANT"
	// KindMismatch is a combination of incompatible units or currencies
	KindMismatch ErrorKind = "MISMATCH"
	// KindStateTransition is an operation attempted from a status that forbids it
	KindStateTransition ErrorKind = "STATE_TRANSITION"
	// KindCorrupted is a persisted record that no longer satisfies its invariants
	KindCorrupted ErrorKind = "CORRUPTED_DATA"
	KindNotFound  ErrorKind = "NOT_FOUND"
	KindConflict  ErrorKind = "CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by code, so sentinels work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindValidation, code, fmt.Sprintf(format, args...))
}

// NewInvariantError creates an invariant violation error
func NewInvariantError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindInvariant, code, fmt.Sprintf(format, args...))
}

// NewMismatchError creates a unit or currency mismatch error
func NewMismatchError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindMismatch, code, fmt.Sprintf(format, args...))
}

// NewTransitionError creates a state transition error
func NewTransitionError(format string, args ...any) *DomainError {
	return NewDomainError(KindStateTransition, "INVALID_TRANSITION", fmt.Sprintf(format, args...))
}

// NewCorruptedDataError wraps a structural failure found while loading persisted data
func NewCorruptedDataError(entity string, cause error) *DomainError {
	return NewDomainError(KindCorrupted, "CORRUPTED_DATA",
		fmt.Sprintf("corrupted %s data: %v", entity, cause))
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrConcurrencyConflict = NewDomainError(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrDuplicateRequest    = NewDomainError(KindConflict, "DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
	ErrLockNotAcquired     = NewDomainError(KindConflict, "LOCK_NOT_ACQUIRED", "Resource is locked by another operation")
	ErrInsufficientStock   = NewDomainError(KindInvariant, "INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrUnitMismatch        = NewDomainError(KindMismatch, "UNIT_MISMATCH", "Units of measure do not match")
	ErrCurrencyMismatch    = NewDomainError(KindMismatch, "CURRENCY_MISMATCH", "Currencies do not match")
)
