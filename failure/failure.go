// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package failure defines the error taxonomy shared by the request
// execution engine.
//
// Every error returned from a request execution is an *Error whose Kind
// names the phase that produced it (validation, transport, hook, retry
// exhaustion, stream and so on). Use KindOf to inspect the kind of any
// error chain, or compare against the kind sentinels with errors.Is:
//
//	if errors.Is(err, failure.ErrCancelled) {
//		...
//	}
package failure

import (
	"errors"
	"strings"
)

// A Kind classifies an error by the execution phase that produced it.
type Kind int

const (
	// Unknown is the kind of any error not produced by the engine.
	Unknown Kind = iota
	// Transport indicates a network-level failure reported by the
	// transport, including non-accepted HTTP status codes.
	Transport
	// Timeout indicates a single attempt exceeded its timeout.
	Timeout
	// Validation indicates the request failed a URL or header check.
	Validation
	// Hook indicates a hook registrant returned an error.
	Hook
	// Exhausted indicates every permitted attempt failed retryably.
	Exhausted
	// BodyTooLarge indicates a materialized response body exceeded the
	// configured maximum size.
	BodyTooLarge
	// Stream indicates an error while consuming a response body stream.
	Stream
	// Cancelled indicates the caller cancelled the execution.
	Cancelled
	// DeadlineExceeded indicates the overall execution deadline passed
	// or would pass before the next attempt could complete.
	DeadlineExceeded
	kindSentinel
)

var kindNames = []string{
	"unknown",
	"transport",
	"timeout",
	"validation",
	"hook",
	"exhausted",
	"body too large",
	"stream",
	"cancelled",
	"deadline exceeded",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindSentinel {
		return "invalid"
	}
	return kindNames[k]
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrTransport        = &sentinel{Transport}
	ErrTimeout          = &sentinel{Timeout}
	ErrValidation       = &sentinel{Validation}
	ErrHook             = &sentinel{Hook}
	ErrExhausted        = &sentinel{Exhausted}
	ErrBodyTooLarge     = &sentinel{BodyTooLarge}
	ErrStream           = &sentinel{Stream}
	ErrCancelled        = &sentinel{Cancelled}
	ErrDeadlineExceeded = &sentinel{DeadlineExceeded}
)

type sentinel struct {
	kind Kind
}

func (s *sentinel) Error() string {
	return "reqflow: " + s.kind.String()
}

// An Error is an error tagged with the execution phase that produced
// it. Op and URL, when set, identify the logical request.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

// New returns an *Error of kind k wrapping err. If err is already an
// *Error of the same kind, it is returned unchanged.
func New(k Kind, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == k {
		return e
	}
	return &Error{Kind: k, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("reqflow: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteByte(' ')
	}
	if e.URL != "" {
		b.WriteString(`"`)
		b.WriteString(e.URL)
		b.WriteString(`": `)
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	return ok && s.kind == e.Kind
}

// Timeout reports whether the error is an attempt timeout, an overall
// deadline expiry, or wraps a cause which reports a timeout.
func (e *Error) Timeout() bool {
	if e.Kind == Timeout || e.Kind == DeadlineExceeded {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// Unknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Permanent marks err as not retryable. The transport uses it to flag
// failures that a retry cannot cure, such as a malformed request.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err}
}

// IsPermanent reports whether err's chain contains an error marked with
// Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
