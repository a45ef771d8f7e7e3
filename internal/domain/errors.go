package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict on create.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrorKind classifies a workflow failure reported back to the caller.
type ErrorKind string

const (
	KindEmptyCart              ErrorKind = "empty_cart"
	KindUnauthenticated        ErrorKind = "unauthenticated"
	KindInvalidPaymentMethod   ErrorKind = "invalid_payment_method"
	KindInvalidServiceType     ErrorKind = "invalid_service_type"
	KindInvalidDateFormat      ErrorKind = "invalid_date_format"
	KindPastDate               ErrorKind = "past_date"
	KindBookingHorizonExceeded ErrorKind = "booking_horizon_exceeded"
	KindWeekendUnavailable     ErrorKind = "weekend_unavailable"
	KindCustomerNotFound       ErrorKind = "customer_not_found"
	KindIneligible             ErrorKind = "ineligible"
	KindInvalidQuantity        ErrorKind = "invalid_quantity"
	KindProductNotFound        ErrorKind = "product_not_found"
	KindProductUnavailable     ErrorKind = "product_unavailable"
	KindCartFull               ErrorKind = "cart_full"
	KindInvalidDiscountCode    ErrorKind = "invalid_discount_code"
	KindInvalidTransition      ErrorKind = "invalid_transition"
	KindInvalidArguments       ErrorKind = "invalid_arguments"
	KindUnknownTool            ErrorKind = "unknown_tool"
	KindBusy                   ErrorKind = "busy"
	KindPersistenceFailed      ErrorKind = "persistence_failed"
)

// Error is a user-facing workflow failure: a machine-readable kind plus a message
// the conversational front end can relay.
type Error struct {
	Kind    ErrorKind
	Message string
	// Err is the underlying cause, if any. It is never shown to customers.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the sentinels below
// match any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrEmptyCart              = &Error{Kind: KindEmptyCart, Message: "the cart is empty"}
	ErrUnauthenticated        = &Error{Kind: KindUnauthenticated, Message: "identify the customer before checking out"}
	ErrInvalidPaymentMethod   = &Error{Kind: KindInvalidPaymentMethod, Message: "invalid payment method"}
	ErrInvalidServiceType     = &Error{Kind: KindInvalidServiceType, Message: "invalid service type"}
	ErrInvalidDateFormat      = &Error{Kind: KindInvalidDateFormat, Message: "invalid date format, use YYYY-MM-DD"}
	ErrPastDate               = &Error{Kind: KindPastDate, Message: "the date must be in the future"}
	ErrBookingHorizonExceeded = &Error{Kind: KindBookingHorizonExceeded, Message: "the date is beyond the booking horizon"}
	ErrWeekendUnavailable     = &Error{Kind: KindWeekendUnavailable, Message: "no service is available on weekends"}
	ErrCustomerNotFound       = &Error{Kind: KindCustomerNotFound, Message: "customer not found"}
	ErrIneligible             = &Error{Kind: KindIneligible, Message: "customer is not eligible"}
	ErrInvalidQuantity        = &Error{Kind: KindInvalidQuantity, Message: "quantity must be at least 1"}
	ErrProductNotFound        = &Error{Kind: KindProductNotFound, Message: "product not found"}
	ErrProductUnavailable     = &Error{Kind: KindProductUnavailable, Message: "product is not available"}
	ErrCartFull               = &Error{Kind: KindCartFull, Message: "the cart is full"}
	ErrInvalidDiscountCode    = &Error{Kind: KindInvalidDiscountCode, Message: "invalid discount code"}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition, Message: "action not allowed at this funnel step"}
	ErrInvalidArguments       = &Error{Kind: KindInvalidArguments, Message: "invalid arguments"}
	ErrUnknownTool            = &Error{Kind: KindUnknownTool, Message: "unknown tool"}
	ErrBusy                   = &Error{Kind: KindBusy, Message: "another request for this session is in progress"}
	ErrPersistenceFailed      = &Error{Kind: KindPersistenceFailed, Message: "the operation could not be stored, try again"}
)

// KindOf returns the kind of a workflow error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Persistence wraps a store failure as persistence_failed. Workflow errors pass through.
func Persistence(err error) error {
	if err == nil || KindOf(err) != "" {
		return err
	}
	return &Error{Kind: KindPersistenceFailed, Message: ErrPersistenceFailed.Message, Err: err}
}
