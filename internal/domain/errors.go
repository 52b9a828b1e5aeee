package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed booking operation
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindAuthRequired      ErrorKind = "AUTH_REQUIRED"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindConflict          ErrorKind = "CONFLICT"
	KindMalformedResponse ErrorKind = "MALFORMED_RESPONSE"
	KindNetwork           ErrorKind = "NETWORK"
	KindTransport         ErrorKind = "TRANSPORT"
	KindUnknown           ErrorKind = "UNKNOWN"
)

// Sentinels matched by errors.Is against any *BookingError of the same kind
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthRequired      = errors.New("authentication required")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNetwork           = errors.New("network error")
	ErrTransport         = errors.New("transport error")
)

// Wizard errors
var (
	ErrTicketTypeNotFound    = errors.New("ticket type not found")
	ErrTicketNotSelectable   = errors.New("ticket type is sold out or not on sale")
	ErrInvalidQuantity       = errors.New("quantity is out of range")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrInvalidPaymentMethod  = errors.New("unknown payment method")
	ErrInvalidTransition     = errors.New("action not allowed in current step")
	ErrCatalogNotLoaded      = errors.New("no event loaded")
	ErrTicketNotIssued       = errors.New("ticket not part of this reservation")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:        ErrValidation,
	KindAuthRequired:      ErrAuthRequired,
	KindNotFound:          ErrNotFound,
	KindConflict:          ErrConflict,
	KindMalformedResponse: ErrMalformedResponse,
	KindNetwork:           ErrNetwork,
	KindTransport:         ErrTransport,
}

// BookingError is the single error type crossing the reservation boundary.
// Status is only set for server-reported failures.
type BookingError struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

func (e *BookingError) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *BookingError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewValidationError creates a validation error with a user-facing message
func NewValidationError(message string) *BookingError {
	return &BookingError{Kind: KindValidation, Message: message}
}

// NewAuthRequiredError creates an error asking the caller to re-authenticate
func NewAuthRequiredError(message string) *BookingError {
	return &BookingError{Kind: KindAuthRequired, Message: message}
}

func NewNotFoundError(message string) *BookingError {
	return &BookingError{Kind: KindNotFound, Message: message}
}

func NewConflictError(message string) *BookingError {
	return &BookingError{Kind: KindConflict, Message: message}
}

// NewMalformedResponseError reports a server response that broke the API contract
func NewMalformedResponseError(message string, err error) *BookingError {
	return &BookingError{Kind: KindMalformedResponse, Message: message, Err: err}
}

// NewNetworkError wraps a failure that happened before any HTTP status was received
func NewNetworkError(err error) *BookingError {
	return &BookingError{Kind: KindNetwork, Err: err}
}

// NewTransportError reports an unexpected HTTP status
func NewTransportError(status int, message string) *BookingError {
	return &BookingError{Kind: KindTransport, Status: status, Message: message}
}

// KindOf classifies err, returning KindUnknown for errors outside the taxonomy
func KindOf(err error) ErrorKind {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

func IsValidationError(err error) bool   { return errors.Is(err, ErrValidation) }
func IsAuthRequiredError(err error) bool { return errors.Is(err, ErrAuthRequired) }
func IsNotFoundError(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsConflictError(err error) bool     { return errors.Is(err, ErrConflict) }
func IsNetworkError(err error) bool      { return errors.Is(err, ErrNetwork) }

// IsRetryable reports whether a manual retry of the same selection can succeed
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork:
		return true
	case KindTransport:
		var be *BookingError
		errors.As(err, &be)
		return be.Status >= 500
	}
	return false
}

// UserMessage returns the message shown to the buyer for err
func UserMessage(err error) string {
	var be *BookingError
	if !errors.As(err, &be) {
		return "Something went wrong. Please try again."
	}
	switch be.Kind {
	case KindValidation:
		if be.Message != "" {
			return be.Message
		}
		return "Invalid reservation details."
	case KindAuthRequired:
		return "You must be signed in to make a reservation."
	case KindNotFound:
		return "This event or ticket type is no longer available."
	case KindConflict:
		return "Not enough tickets left. Choose another ticket type or a smaller quantity."
	case KindNetwork:
		return "Could not reach the ticketing service. Check your connection and try again."
	case KindTransport:
		return fmt.Sprintf("Reservation failed (HTTP %d). Please try again.", be.Status)
	}
	return "Something went wrong. Please try again."
}
