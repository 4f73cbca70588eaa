// Package apperr defines the domain error taxonomy. Handlers map these
// to HTTP responses; anything else is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind discriminates domain errors
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindInvalidArgument
	KindInsufficientStock
	KindEmptyCart
	KindCannotCancel
)

// Error is a domain error with a stable user-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports an absent entity. Absent and not-owned-by-caller are
// deliberately merged so existence is never leaked across users.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Unauthorized reports an authenticated but not permitted caller
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// InvalidArgument reports malformed input
func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// InsufficientStock reports a stock rule violation for a product
func InsufficientStock(productName string, available, required int) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock for %s. Available: %d, Required: %d",
			productName, available, required),
	}
}

// EmptyCart reports checkout on a cart with no items
func EmptyCart() *Error {
	return &Error{Kind: KindEmptyCart, Message: "Cart is empty"}
}

// CannotCancel reports a cancel attempt on a non-pending order
func CannotCancel(status string) *Error {
	return &Error{
		Kind:    KindCannotCancel,
		Message: fmt.Sprintf("Cannot cancel order with status: %s", status),
	}
}

// Internal wraps an unexpected failure. Its message is safe to log but
// must not reach callers in a production posture.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
