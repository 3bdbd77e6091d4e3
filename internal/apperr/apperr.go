// Package apperr defines the typed failures returned across service
// boundaries. Every error carries a stable machine-readable code and a kind
// that the HTTP layer maps onto a status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindForbidden         Kind = "forbidden"
	KindUnauthenticated   Kind = "unauthenticated"
	KindTransactionFailed Kind = "transaction_failed"
	KindValidation        Kind = "validation_error"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match on code, so copies produced by Wrap or WithMessage still
// satisfy errors.Is against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrSlotAlreadyBooked       = newErr(KindConflict, "SLOT_ALREADY_BOOKED", "This slot is already booked. Please choose another time.")
	ErrDoctorNotFound          = newErr(KindNotFound, "DOCTOR_NOT_FOUND", "Doctor not found")
	ErrDoctorUnavailable       = newErr(KindConflict, "DOCTOR_UNAVAILABLE", "Doctor is not available for appointments")
	ErrUserNotFound            = newErr(KindNotFound, "USER_NOT_FOUND", "User not found")
	ErrAppointmentNotFound     = newErr(KindNotFound, "APPOINTMENT_NOT_FOUND", "Appointment not found")
	ErrUnauthorized            = newErr(KindForbidden, "UNAUTHORIZED", "Unauthorized action")
	ErrAlreadyCancelled        = newErr(KindConflict, "ALREADY_CANCELLED", "Appointment is already cancelled")
	ErrAlreadyCompleted        = newErr(KindConflict, "ALREADY_COMPLETED", "Appointment is already marked as completed")
	ErrCannotCompleteCancelled = newErr(KindConflict, "CANNOT_COMPLETE_CANCELLED", "A cancelled appointment cannot be completed")
	ErrCannotCancelCompleted   = newErr(KindConflict, "CANNOT_CANCEL_COMPLETED", "A completed appointment cannot be cancelled")
	ErrAppointmentChanged      = newErr(KindConflict, "APPOINTMENT_CHANGED", "The appointment was changed by another request. Please reload it.")
	ErrTransactionFailed       = newErr(KindTransactionFailed, "TRANSACTION_FAILED", "The operation could not be committed; no changes were made")
	ErrOutcomeUnknown          = newErr(KindTransactionFailed, "OUTCOME_UNKNOWN", "The operation may or may not have been applied. Check its state before retrying.")
	ErrValidation              = newErr(KindValidation, "VALIDATION_ERROR", "Invalid request")
	ErrEmailTaken              = newErr(KindConflict, "EMAIL_TAKEN", "An account with this email already exists")
	ErrInvalidCredentials      = newErr(KindUnauthenticated, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountInactive         = newErr(KindForbidden, "ACCOUNT_INACTIVE", "Your account is not active. Please contact the administrator.")
	ErrInternal                = newErr(KindInternal, "INTERNAL", "Internal server error")
)

// Validation builds a VALIDATION_ERROR with the given message.
func Validation(format string, args ...any) *Error {
	return ErrValidation.WithMessage(format, args...)
}

// As extracts an *Error from err. Anything that is not already typed is
// reported as ErrInternal wrapping the original cause.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindTransactionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
