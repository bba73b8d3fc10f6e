package shop

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/store"
)

type Kind string

const (
	KindEmptyCart         Kind = "EmptyCart"
	KindInsufficientStock Kind = "InsufficientStock"
	KindNotFound          Kind = "NotFound"
	KindInvalidTransition Kind = "InvalidTransition"
	KindValidation        Kind = "ValidationError"
	KindConflict          Kind = "Conflict"
)

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the user-facing failure returned by every service method.
type Error struct {
	Kind      Kind
	Message   string
	ProductID primitive.ObjectID
	Available int
	Requested int
	Fields    []FieldError
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message or payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyCart         = &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
)

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func invalid(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

func conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func insufficientStock(product primitive.ObjectID, title string, available, requested int) *Error {
	msg := "insufficient stock"
	if title != "" {
		msg = fmt.Sprintf("insufficient stock for %s", title)
	}
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   msg,
		ProductID: product,
		Available: available,
		Requested: requested,
	}
}

func invalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot move order from %s to %s", from, to),
	}
}

// KindOf reports the kind of a service error, or "" for unexpected failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// translate maps store sentinels to service errors and wraps anything else.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindConflict, Message: what + " already exists", Err: err}
	default:
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return fmt.Errorf("%s: %w", what, err)
	}
}
