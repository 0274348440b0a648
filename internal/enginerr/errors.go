// Package enginerr defines the closed set of error kinds the debate
// engine surfaces across its component boundaries.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind is a stable, enumerated error classification. Callers match on
// Kind rather than on error strings.
type Kind string

const (
	InvalidConfig       Kind = "InvalidConfig"
	NotFound            Kind = "NotFound"
	InvalidTransition   Kind = "InvalidTransition"
	UpstreamUnavailable Kind = "UpstreamUnavailable"
	UpstreamAuth        Kind = "UpstreamAuth"
	UpstreamMalformed   Kind = "UpstreamMalformed"
	JudgeUnparseable    Kind = "JudgeUnparseable"
	Cancelled           Kind = "Cancelled"
	UnsupportedFormat   Kind = "UnsupportedFormat"
)

// Error is the engine's normalized error type. Context identifies the
// provider/model or debate id relevant to the failure; it is safe to
// surface to clients, unlike the wrapped raw error.
type Error struct {
	Kind    Kind
	Context string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Context, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, enginerr.New(enginerr.NotFound, "", "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, context, detail string) *Error {
	return &Error{Kind: kind, Context: context, Detail: detail}
}

// Wrap builds an *Error that preserves cause for errors.Unwrap chains.
func Wrap(kind Kind, context string, cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Kind: kind, Context: context, Detail: detail, Cause: cause}
}

// Of reports the Kind of err, or "" if err is not an *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinel values for errors.Is comparisons against a bare kind.
var (
	ErrInvalidConfig       = New(InvalidConfig, "", "")
	ErrNotFound            = New(NotFound, "", "")
	ErrInvalidTransition   = New(InvalidTransition, "", "")
	ErrUpstreamUnavailable = New(UpstreamUnavailable, "", "")
	ErrUpstreamAuth        = New(UpstreamAuth, "", "")
	ErrUpstreamMalformed   = New(UpstreamMalformed, "", "")
	ErrJudgeUnparseable    = New(JudgeUnparseable, "", "")
	ErrCancelled           = New(Cancelled, "", "")
	ErrUnsupportedFormat   = New(UnsupportedFormat, "", "")
)
