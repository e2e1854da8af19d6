// Package apperr defines the error kinds every service operation reports.
// Handlers never inspect error strings; they map the Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation_error"
	KindConflict     Kind = "conflict"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.ErrNotFound) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Detail == "" && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
)

func Unauthorized(detail string) error { return &Error{Kind: KindUnauthorized, Detail: detail} }
func Forbidden(detail string) error    { return &Error{Kind: KindForbidden, Detail: detail} }
func NotFound(detail string) error     { return &Error{Kind: KindNotFound, Detail: detail} }
func Validation(detail string) error   { return &Error{Kind: KindValidation, Detail: detail} }
func Conflict(detail string) error     { return &Error{Kind: KindConflict, Detail: detail} }
func Unavailable(detail string) error  { return &Error{Kind: KindUnavailable, Detail: detail} }

// Internal wraps an unexpected failure; the detail is safe to show, err is not.
func Internal(detail string, err error) error {
	return &Error{Kind: KindInternal, Detail: detail, Err: err}
}

// KindOf 返回错误类型，非 *Error 一律视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
