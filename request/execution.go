// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gogama/reqflow/transient"
)

// An Execution represents the state of a single Plan execution.
//
// When a request plan is run, an Execution is created for it. The
// Execution is updated as the run progresses (for example when the
// response head becomes available, or when a retry is needed) and is
// ultimately returned to the caller as part of the response.
//
// An Execution is owned by exactly one in-flight run and is never
// shared between concurrent runs. Hook registrants may store values on
// it using SetValue and read them back using Value, which is the way to
// pass data forward from one hook to a later one. They should otherwise
// treat the exported fields as read-only, with two exceptions: a
// PreRequest registrant may change Request, and PreResponse and
// PostResponse registrants may change Head.
type Execution struct {
	// ID uniquely identifies the execution.
	ID uuid.UUID

	// Plan specifies the request plan being executed. It is never nil
	// and never modified.
	Plan *Plan

	// Request is the working copy of Plan that is actually sent. It
	// starts as a clone of Plan. PreRequest registrants may modify it,
	// for example to add authentication headers.
	Request *Plan

	// Start is the start time of the execution, as read from the
	// client's clock. It is set when the run starts and remains
	// constant thereafter.
	Start time.Time

	// End is the end time of the execution. It contains the zero value
	// until the run ends.
	End time.Time

	// Attempt is the number of transport calls made so far. It is zero
	// before the first attempt, one during and after the first attempt,
	// and so on. When the execution has ended it holds the total number
	// of attempts made.
	Attempt int

	// AttemptTimeouts is the number of attempts that ended because the
	// per-attempt timeout expired.
	AttemptTimeouts int

	// Head is the response head received by the most recent successful
	// attempt. It is nil until an attempt succeeds.
	Head *Head

	// Body is the fully materialized response body. It is nil while the
	// run is underway and remains nil for streamed responses.
	Body []byte

	// Err is the error from the most recent attempt, or the final error
	// once the execution has ended. It is nil when the most recent
	// attempt succeeded.
	Err error

	data context.Context
}

// NewExecution returns a new execution of p with a fresh ID and a
// working Request copy of p.
func NewExecution(p *Plan) *Execution {
	if p == nil {
		panic("reqflow/request: nil plan")
	}
	return &Execution{
		ID:      uuid.New(),
		Plan:    p,
		Request: p.Clone(),
	}
}

// Clone returns a shallow copy of e whose Request and Head are deep
// copies. Observational hooks receive clones so that they cannot change
// the state of the run.
func (e *Execution) Clone() *Execution {
	e2 := new(Execution)
	*e2 = *e
	if e.Request != nil {
		e2.Request = e.Request.Clone()
	}
	if e.Head != nil {
		h := *e.Head
		h.Header = e.Head.Header.Clone()
		e2.Head = &h
	}
	return e2
}

// StatusCode returns the status code of the response head, or 0 if no
// attempt has succeeded yet.
func (e *Execution) StatusCode() int {
	if e.Head == nil {
		return 0
	}

	return e.Head.StatusCode
}

// Header returns the response header fields, or nil if no attempt has
// succeeded yet. A nil header is always safe for read-only operations.
func (e *Execution) Header() http.Header {
	if e.Head == nil {
		return nil
	}

	return e.Head.Header
}

// Duration returns the duration of the execution as of now, which is
// a time read from the same clock that set Start.
//
// If the execution has not started, the duration is zero. If it has
// ended, the duration is End minus Start.
func (e *Execution) Duration(now time.Time) time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return now.Sub(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has ended. Once it has ended,
// there will be no further changes to the execution.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether Err currently contains a timeout error.
//
// Note that Timeout may return false even if AttemptTimeouts > 0, if
// the most recent attempt did not end in a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores arbitrary data in the execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different registrants putting data into the
// same execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
