package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindConflict        ErrorKind = "conflict"
	KindPolicyViolation ErrorKind = "policy_violation"
	KindNotFound        ErrorKind = "not_found"
	KindExternalService ErrorKind = "external_service"
	KindPersistence     ErrorKind = "persistence"
)

type ReasonCode string

const (
	ReasonValidation            ReasonCode = "VALIDATION_ERROR"
	ReasonNotFound              ReasonCode = "NOT_FOUND"
	ReasonSlotNoLongerAvailable ReasonCode = "SLOT_NO_LONGER_AVAILABLE"
	ReasonProfessionalInactive  ReasonCode = "PROFESSIONAL_INACTIVE"
	ReasonServiceInactive       ReasonCode = "SERVICE_INACTIVE"
	ReasonCancellationWindow    ReasonCode = "CANCELLATION_WINDOW_EXPIRED"
	ReasonNotCancellable        ReasonCode = "APPOINTMENT_NOT_CANCELLABLE"
	ReasonInvalidTransition     ReasonCode = "INVALID_STATUS_TRANSITION"
	ReasonSubscriptionExists    ReasonCode = "SUBSCRIPTION_ALREADY_ACTIVE"
	ReasonSubscriptionConflict  ReasonCode = "SUBSCRIPTION_CONFLICT"
	ReasonNothingToPay          ReasonCode = "NOTHING_TO_PAY"
	ReasonGatewayUnavailable    ReasonCode = "GATEWAY_UNAVAILABLE"
	ReasonPersistence           ReasonCode = "PERSISTENCE_ERROR"
)

// Error is the domain error carried across service boundaries. Message is
// safe to show to end users.
type Error struct {
	Kind    ErrorKind
	Code    ReasonCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, code ReasonCode, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: cause}
}

func validationError(msg string, cause error) *Error {
	return newError(KindValidation, ReasonValidation, msg, cause)
}

func notFoundError(msg string, cause error) *Error {
	return newError(KindNotFound, ReasonNotFound, msg, cause)
}

func persistenceError(msg string, cause error) *Error {
	return newError(KindPersistence, ReasonPersistence, msg, cause)
}

// KindOf returns the taxonomy kind of err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError extracts the domain error, wrapping foreign errors as persistence
// failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return persistenceError("Erro interno. Tente novamente.", err)
}

// Result is the structured outcome of user-facing flows. Err is kept for the
// transport layer and never serialised.
type Result struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	ReasonCode    ReasonCode     `json:"reasonCode,omitempty"`
	AppointmentID string         `json:"appointmentId,omitempty"`
	Pricing       *PricingResult `json:"pricing,omitempty"`
	Err           *Error         `json:"-"`
}

func succeeded(msg string) Result {
	return Result{Success: true, Message: msg}
}

func failed(err *Error) Result {
	return Result{Success: false, Message: err.Message, ReasonCode: err.Code, Err: err}
}
