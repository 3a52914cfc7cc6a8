// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"time"

	"github.com/gogama/reqflow/request"
)

// A Hook identifies a dispatch point in the request lifecycle. Register
// a Registrant in a Client's Pipeline to extend the client with custom
// functionality at one or more hooks.
type Hook int

const (
	// PreRequest identifies the hook dispatched once per run, before
	// the first attempt and before any validation.
	//
	// PreRequest registrants may modify the execution's Request, for
	// example to add authentication or signing headers. An error from a
	// PreRequest registrant prevents any attempt from being made.
	PreRequest Hook = iota
	// PostRequest identifies the hook dispatched once per successful
	// run, after PostResponse. In streaming mode it is dispatched before
	// the stream handle is returned to the caller.
	//
	// PostRequest is observational: registrants receive a copy of the
	// execution.
	PostRequest
	// PreResponse identifies the hook dispatched once per successful
	// run, when the response head of the final attempt has arrived but
	// before the body is read. Registrants may modify the payload's Head.
	PreResponse
	// PostResponse identifies the hook dispatched once per successful
	// run, after the body has been materialized or, in streaming mode,
	// after the stream chain has been built. Registrants may modify the
	// payload's Head but have no access to the body.
	PostResponse
	// OnError identifies the hook dispatched at most once per run, just
	// before a failure is returned to the caller. The payload's Err is
	// the final error.
	//
	// OnError is observational, and an error from an OnError registrant
	// is logged and discarded rather than returned.
	OnError
	// OnRetry identifies the hook dispatched after each retryable
	// failure which will be retried, before the backoff sleep. The
	// payload carries the failed attempt number, the delay about to be
	// slept and the triggering error.
	//
	// OnRetry is observational, but an error from an OnRetry registrant
	// ends the run.
	OnRetry
	// OnStream identifies the hook dispatched for each chunk a stream
	// handle releases to the caller. The payload's Chunk must not be
	// modified.
	OnStream
	// hookSentinel provides the total number of hooks typed as a Hook.
	hookSentinel

	// numHooks provides the total number of hooks as an int.
	numHooks = int(hookSentinel)
)

var hookNames = []string{
	"PreRequest",
	"PostRequest",
	"PreResponse",
	"PostResponse",
	"OnError",
	"OnRetry",
	"OnStream",
}

// Hooks returns a slice containing every hook.
func Hooks() []Hook {
	return []Hook{
		PreRequest,
		PostRequest,
		PreResponse,
		PostResponse,
		OnError,
		OnRetry,
		OnStream,
	}
}

// Name returns the name of the hook.
func (h Hook) Name() string {
	if h < 0 || h >= hookSentinel {
		return "Hook(?)"
	}
	return hookNames[h]
}

// String returns the name of the hook.
func (h Hook) String() string {
	return h.Name()
}

// A Payload is what a Registrant receives when a hook is dispatched.
// Only the fields relevant to the hook are set.
type Payload struct {
	// Hook is the hook being dispatched.
	Hook Hook

	// Execution is the state of the run. It is the live execution for
	// PreRequest, PreResponse and PostResponse, and a copy for the
	// observational hooks.
	Execution *request.Execution

	// Head is the response head, for PreResponse, PostResponse and
	// PostRequest.
	Head *request.Head

	// Err is the triggering error for OnRetry, and the final error for
	// OnError.
	Err error

	// Attempt is the number of the failed attempt, for OnRetry.
	Attempt int

	// Delay is the backoff about to be slept, for OnRetry.
	Delay time.Duration

	// Chunk is the chunk being released, for OnStream.
	Chunk []byte

	// Time is the client clock's reading at dispatch. Registrants
	// measuring elapsed time use it instead of the wall clock.
	Time time.Time
}
