// Package apperror classifies failures into kinds that map onto HTTP statuses
// and client-safe messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDecode
	KindTooLarge
	KindNotFound
	KindRateLimited
	KindUnavailable
	KindInference
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindTooLarge:
		return "too_large"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindInference:
		return "inference"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindDecode:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) defaultMessage() string {
	switch k {
	case KindDecode:
		return "Uploaded file is not a valid image"
	case KindTooLarge:
		return "Uploaded file is too large"
	case KindNotFound:
		return "Not found"
	case KindRateLimited:
		return "Too many requests"
	case KindUnavailable:
		return "Inference engine busy, retry later"
	case KindInference:
		return "Inference failed"
	case KindIO:
		return "Storage failure"
	default:
		return "Internal server error"
	}
}

// Error carries a kind, a message that is safe to show to clients and the
// underlying cause, which is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind with an explicit public message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to err. The public message is the kind's default.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: kind.defaultMessage(), Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Public returns the status code and client-facing message for err.
// Server-side kinds never expose the wrapped cause.
func Public(err error) (int, string) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, KindUnknown.defaultMessage()
	}

	status := appErr.Kind.Status()
	if status >= http.StatusInternalServerError || appErr.Message == "" {
		return status, appErr.Kind.defaultMessage()
	}
	return status, appErr.Message
}
