// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"io"
)

// An Adapter is a lazy, non-restartable sequence of byte chunks.
//
// Next returns the next non-empty chunk, or io.EOF when the sequence
// is exhausted. After Next returns an error, every later call returns
// an error too. The returned chunk is owned by the caller.
type Adapter interface {
	Next(ctx context.Context) ([]byte, error)
}

// The AdapterFunc type is an adapter to allow the use of ordinary
// functions as stream adapters.
type AdapterFunc func(ctx context.Context) ([]byte, error)

// Next returns f(ctx).
func (f AdapterFunc) Next(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// A Stage wraps an upstream adapter in a transform. Parameter total is
// the full body length if known, or -1.
type Stage func(up Adapter, total int64) Adapter

// Chain applies stages to src in order, so the first stage is closest
// to the source and the last is the one the consumer pulls from.
func Chain(src Adapter, total int64, stages ...Stage) Adapter {
	a := src
	for _, s := range stages {
		if s != nil {
			a = s(a, total)
		}
	}
	return a
}

// An Error is an upstream error annotated with the name of an adapter
// it passed through. Nested Errors record the full path from the
// consumer back to the origin.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// wrap annotates err with the stage name, except io.EOF which must
// pass through bare.
func wrap(stage string, err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	return &Error{Stage: stage, Err: err}
}

// pull returns the next non-empty chunk from up.
func pull(ctx context.Context, up Adapter) ([]byte, error) {
	for {
		b, err := up.Next(ctx)
		if len(b) > 0 || err != nil {
			return b, err
		}
	}
}
