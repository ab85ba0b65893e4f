package dto

import (
	"errors"
	"net/http"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes
// (INSUFFICIENT_STOCK, UNIT_MISMATCH, ...).
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnavailable  = "ERR_SERVICE_UNAVAILABLE"
)

// kindStatus maps each domain error kind to its HTTP status
var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:      http.StatusBadRequest,
	shared.KindMismatch:        http.StatusBadRequest,
	shared.KindInvariant:       http.StatusUnprocessableEntity,
	shared.KindStateTransition: http.StatusUnprocessableEntity,
	shared.KindNotFound:        http.StatusNotFound,
	shared.KindConflict:        http.StatusConflict,
	shared.KindCorrupted:       http.StatusInternalServerError,
}

// StatusForKind returns the HTTP status for a domain error kind, 500 when unknown
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFromDomain turns err into a status and error body. Only domain errors
// expose their message; anything else is reported as an internal error.
func ErrorFromDomain(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError,
			NewErrorResponse(ErrCodeInternal, "An unexpected error occurred", requestID)
	}
	status := StatusForKind(de.Kind)
	message := de.Message
	if de.Kind == shared.KindCorrupted {
		message = "Stored data failed validation"
	}
	return status, NewErrorResponse(de.Code, message, requestID)
}
