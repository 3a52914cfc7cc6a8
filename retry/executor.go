// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogama/reqflow/clock"
	"github.com/gogama/reqflow/failure"
	"github.com/gogama/reqflow/timeout"
)

// A Retry describes a retry about to happen. It is passed to
// Executor.OnRetry.
type Retry struct {
	// Attempt is the number of the attempt that failed, counting
	// from 1.
	Attempt int
	// Delay is the backoff about to be slept.
	Delay time.Duration
	// Err is the retryable error that triggered the retry.
	Err error
}

// ExhaustedError is returned, wrapped in a *failure.Error of kind
// failure.Exhausted, when every permitted attempt failed retryably.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

var (
	errAttemptTimeout = errors.New("attempt timeout exceeded")
	errDeadline       = errors.New("overall deadline would be exceeded")
)

// An Executor runs an operation until it succeeds, fails fatally, runs
// out of attempts, or runs out of time.
//
// The zero value is not usable: Policy must be valid. Every other field
// has a default. An Executor holds no per-run state, so one value may
// serve concurrent calls to Execute.
type Executor struct {
	// Policy bounds attempts and shapes backoff.
	Policy Policy

	// Classifier classifies attempt errors. If nil, DefaultClassifier
	// is used.
	Classifier Classifier

	// Timeout chooses each attempt's timeout. If nil,
	// timeout.DefaultPolicy is used.
	Timeout timeout.Policy

	// Clock is used for deadline checks and backoff sleeps. If nil,
	// clock.Wall is used. Attempt timeouts always run on the wall clock
	// because they must interrupt the operation itself.
	Clock clock.Clock

	// Deadline, if not zero, is the overall deadline in Clock's frame.
	// It is checked before each attempt and before each backoff sleep.
	Deadline time.Time

	// AfterAttempt, if not nil, is called after every attempt with the
	// attempt's outcome. A timed out attempt's error has kind
	// failure.Timeout.
	AfterAttempt func(attempt int, err error)

	// OnRetry, if not nil, is called after a retryable failure and
	// before the backoff sleep. A non-nil return value ends the run
	// with that error.
	OnRetry func(ctx context.Context, r Retry) error

	// Jitter randomizes backoffs when Policy.Jitter is set. If nil, a
	// shared package-level source is used.
	Jitter *Jitter
}

// Execute runs op at most Policy.MaxAttempts times. Each call receives
// a context bounded by the attempt timeout and the attempt number,
// counting from 1.
//
// The attempt timeout covers op only. On success, Execute returns a
// release function which cancels the successful attempt's context; the
// caller must call it once it is done with whatever op produced. On
// failure the error is returned as follows:
//
// • a Fatal error from op is returned as is;
//
// • a retryable error on the last attempt is wrapped in an
// *ExhaustedError inside a *failure.Error of kind failure.Exhausted;
//
// • cancellation of ctx yields kind failure.Cancelled, and expiry of
// ctx or of Deadline yields kind failure.DeadlineExceeded;
//
// • an error from OnRetry is returned as is.
func (x *Executor) Execute(ctx context.Context, op func(ctx context.Context, attempt int) error) (context.CancelFunc, error) {
	if err := x.Policy.Validate(); err != nil {
		panic(err.Error())
	}
	clk := clock.Or(x.Clock)
	classifier := x.Classifier
	if classifier == nil {
		classifier = DefaultClassifier
	}
	tp := x.Timeout
	if tp == nil {
		tp = timeout.DefaultPolicy
	}

	var state timeout.State
	for attempt := 1; attempt <= x.Policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, doneError(ctx, nil)
		}
		if !x.Deadline.IsZero() && !clk.Now().Before(x.Deadline) {
			return nil, failure.New(failure.DeadlineExceeded, errDeadline)
		}

		actx, cancel := context.WithCancelCause(ctx)
		var timer *time.Timer
		if d := tp.Timeout(state); d > 0 {
			timer = time.AfterFunc(d, func() { cancel(errAttemptTimeout) })
		}
		err := op(actx, attempt)
		if timer != nil {
			timer.Stop()
		}
		timedOut := errors.Is(context.Cause(actx), errAttemptTimeout)
		if err == nil && !timedOut {
			if x.AfterAttempt != nil {
				x.AfterAttempt(attempt, nil)
			}
			return func() { cancel(context.Canceled) }, nil
		}
		cancel(context.Canceled)

		state.Attempt = attempt
		state.LastTimedOut = timedOut
		if timedOut {
			state.Timeouts++
			if err == nil {
				err = errAttemptTimeout
			}
			err = &failure.Error{Kind: failure.Timeout, Err: err}
		}
		if x.AfterAttempt != nil {
			x.AfterAttempt(attempt, err)
		}
		if !timedOut && ctx.Err() != nil {
			return nil, doneError(ctx, err)
		}

		if classifier.Classify(err) == Fatal {
			return nil, err
		}
		if attempt == x.Policy.MaxAttempts {
			return nil, failure.New(failure.Exhausted, &ExhaustedError{Attempts: attempt, Last: err})
		}

		delay := x.Policy.Delay(attempt, x.Jitter)
		if !x.Deadline.IsZero() && !clk.Now().Add(delay).Before(x.Deadline) {
			return nil, failure.New(failure.DeadlineExceeded, errDeadline)
		}
		if x.OnRetry != nil {
			if rerr := x.OnRetry(ctx, Retry{Attempt: attempt, Delay: delay, Err: err}); rerr != nil {
				return nil, rerr
			}
		}
		if serr := clk.Sleep(ctx, delay); serr != nil {
			return nil, doneError(ctx, serr)
		}
	}

	panic("reqflow/retry: unreachable")
}

// doneError converts the end of ctx into a Cancelled or
// DeadlineExceeded error. Parameter cause, if not nil, is the error
// observed when the end of ctx was noticed.
func doneError(ctx context.Context, cause error) error {
	err := cause
	if err == nil {
		err = context.Cause(ctx)
	}
	if err == nil {
		err = context.Canceled
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &failure.Error{Kind: failure.DeadlineExceeded, Err: err}
	}
	return &failure.Error{Kind: failure.Cancelled, Err: err}
}
