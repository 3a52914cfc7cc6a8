// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"

	"github.com/gogama/reqflow/failure"
	"github.com/gogama/reqflow/transient"
)

// A Class says whether a failed attempt may be retried.
type Class int

const (
	// Fatal errors end the execution immediately.
	Fatal Class = iota
	// Retryable errors are retried until the attempt budget runs out.
	Retryable
)

func (c Class) String() string {
	if c == Retryable {
		return "Retryable"
	}
	return "Fatal"
}

// A Classifier maps an attempt error to a Class. Classifiers must be
// pure functions of the error and safe for concurrent use.
type Classifier interface {
	Classify(err error) Class
}

// The ClassifierFunc type is an adapter to allow the use of ordinary
// functions as classifiers.
type ClassifierFunc func(err error) Class

// Classify returns f(err).
func (f ClassifierFunc) Classify(err error) Class {
	return f(err)
}

// Or composes two classifiers into one which reports Retryable if
// either of them does. Short-circuit logic is used, so g is not called
// if f reports Retryable.
func (f ClassifierFunc) Or(g ClassifierFunc) ClassifierFunc {
	return func(err error) Class {
		if f(err) == Retryable {
			return Retryable
		}
		return g(err)
	}
}

// StatusCode constructs a classifier reporting Retryable if err carries
// a *failure.StatusError whose status code is one of ss, and Fatal
// otherwise.
func StatusCode(ss ...int) ClassifierFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(err error) Class {
		var se *failure.StatusError
		if !errors.As(err, &se) {
			return Fatal
		}
		for _, s := range ss2 {
			if se.StatusCode == s {
				return Retryable
			}
		}
		return Fatal
	}
}

// TransientErr is a classifier reporting Retryable if the error is
// transient according to transient.Categorize.
var TransientErr ClassifierFunc = func(err error) Class {
	if transient.Categorize(err) != transient.Not {
		return Retryable
	}
	return Fatal
}

// DefaultClassifier is the classification used when none is configured:
//
// • errors marked with failure.Permanent are Fatal;
//
// • validation, hook, exhaustion, body size, stream, cancellation and
// deadline errors are Fatal;
//
// • a non-accepted status is Retryable for 5XX and 429 and Fatal for
// every other status;
//
// • attempt timeouts and other transport errors are Retryable;
//
// • a bare context.Canceled is Fatal.
var DefaultClassifier ClassifierFunc = classify

func classify(err error) Class {
	if err == nil || failure.IsPermanent(err) {
		return Fatal
	}

	switch failure.KindOf(err) {
	case failure.Validation, failure.Hook, failure.Exhausted,
		failure.BodyTooLarge, failure.Stream, failure.Cancelled,
		failure.DeadlineExceeded:
		return Fatal
	case failure.Timeout:
		return Retryable
	}

	var se *failure.StatusError
	if errors.As(err, &se) {
		if se.Retryable() {
			return Retryable
		}
		return Fatal
	}

	if errors.Is(err, context.Canceled) {
		return Fatal
	}

	return Retryable
}
