// Package apperrors carries the error taxonomy shared by the store, the
// services and the HTTP layer.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindStoreFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid-input"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not-found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindStoreFailure:
		return "store-failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrStoreFailure = &Error{Kind: KindStoreFailure}
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func InvalidInput(op, msg string) error { return New(KindInvalidInput, op, msg) }
func Validation(op, msg string) error   { return New(KindValidation, op, msg) }
func NotFound(op, msg string) error     { return New(KindNotFound, op, msg) }

func StoreFailure(op string, err error) error {
	return Wrap(KindStoreFailure, op, err, "store failure")
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a client. Store and unknown
// failures never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Internal Server Error"
	}
	switch e.Kind {
	case KindStoreFailure, KindUnknown:
		return "Internal Server Error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}
