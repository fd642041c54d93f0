package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	// KindFormat marks an input document that cannot be processed.
	KindFormat     Kind = "format"
	KindAuth       Kind = "auth"
	KindRateLimit  Kind = "rate_limit"
	KindNetwork    Kind = "network"
	KindMalformed  Kind = "malformed_response"
	KindBadRequest Kind = "bad_request"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindFormat:
		return "Input document is not a valid JSON object."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindNetwork:
		return "Temporary network or upstream error. Please try again."
	case KindMalformed:
		return "Translation response did not match the request."
	case KindBadRequest:
		return "Request rejected by upstream API."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Format(err error) error {
	return New(KindFormat, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Network(err error) error {
	return New(KindNetwork, "", err)
}

func Malformed(err error) error {
	return New(KindMalformed, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsRetryable reports whether another attempt at the same request may succeed.
// Malformed responses are retried only when the caller opts in.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindNetwork || e.Kind == KindRateLimit
}

func IsRateLimit(err error) bool {
	return Is(err, KindRateLimit)
}

// IsFatal reports whether the error must abort a whole run rather than one batch.
func IsFatal(err error) bool {
	return Is(err, KindAuth)
}
