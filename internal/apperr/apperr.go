package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can decide whether to retry,
// surface the failure, or re-invoke with a confirmation flag.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindState       Kind = "state"
	KindConcurrency Kind = "concurrency"
	KindNotFound    Kind = "not_found"
)

// Error is a typed application error with an optional structured
// detail payload for the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) WithDetails(details interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func State(code, message string) *Error {
	return New(KindState, code, message)
}

func Concurrency(code, message string) *Error {
	return New(KindConcurrency, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

func IsConcurrency(err error) bool { return IsKind(err, KindConcurrency) }
func IsConflict(err error) bool    { return IsKind(err, KindConflict) }
func IsNotFound(err error) bool    { return IsKind(err, KindNotFound) }
func IsValidation(err error) bool  { return IsKind(err, KindValidation) }
func IsState(err error) bool       { return IsKind(err, KindState) }

// As unwraps err into an *Error, or nil if it is not one.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HTTPStatus maps an error kind to the status the handlers respond with.
func HTTPStatus(err error) int {
	ae := As(err)
	if ae == nil {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindState, KindConcurrency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
