// Package apperr defines the error taxonomy surfaced by the trading engine.
//
// Domain-rule violations are expected outcomes with a stable machine-readable
// code. Internal failures carry their cause for logging but present a generic
// message to callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind int

const (
	KindNone Kind = iota
	KindInputInvalid
	KindNotFound
	KindLeagueClosed
	KindInsufficientBalance
	KindInsufficientShares
	KindInsufficientFreeShares
	KindConcurrencyConflict
	KindInternal
)

var codes = map[Kind]string{
	KindNone:                   "",
	KindInputInvalid:           "input_invalid",
	KindNotFound:               "not_found",
	KindLeagueClosed:           "league_closed",
	KindInsufficientBalance:    "insufficient_balance",
	KindInsufficientShares:     "insufficient_shares",
	KindInsufficientFreeShares: "insufficient_free_shares",
	KindConcurrencyConflict:    "concurrency_conflict",
	KindInternal:               "internal",
}

// Code returns the stable wire code of k.
func (k Kind) Code() string {
	return codes[k]
}

func (k Kind) String() string {
	return k.Code()
}

// Status maps k to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindInputInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindLeagueClosed, KindInsufficientBalance, KindInsufficientShares, KindInsufficientFreeShares:
		return http.StatusUnprocessableEntity
	case KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller should resubmit the same operation.
func (k Kind) Retryable() bool {
	return k == KindConcurrencyConflict
}

// Error is a classified error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// PublicMessage is what callers see. Internal details are never exposed.
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return "internal error"
	}
	return e.Message
}

// Sentinels for errors.Is comparisons.
var (
	ErrInputInvalid           = &Error{Kind: KindInputInvalid, Message: "invalid input"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrLeagueClosed           = &Error{Kind: KindLeagueClosed, Message: "league is closed"}
	ErrInsufficientBalance    = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrInsufficientShares     = &Error{Kind: KindInsufficientShares, Message: "insufficient shares"}
	ErrInsufficientFreeShares = &Error{Kind: KindInsufficientFreeShares, Message: "insufficient free shares"}
	ErrConcurrencyConflict    = &Error{Kind: KindConcurrencyConflict, Message: "concurrent update, retry the operation"}
	ErrInternal               = &Error{Kind: KindInternal, Message: "internal error"}
)

// New returns a classified error with a caller-facing message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error, op string) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf classifies any error. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns err as *Error, classifying unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "unexpected failure")
}
