// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogama/reqflow/clock"
	"github.com/gogama/reqflow/failure"
	"github.com/gogama/reqflow/request"
	"github.com/gogama/reqflow/stream"
)

// ErrStreamClosed is returned by Stream.Next and Stream.Read after the
// stream has been closed by the caller.
var ErrStreamClosed = errors.New("reqflow: stream closed")

// A Stream is the handle to a response body being delivered chunk by
// chunk through the configured stage chain.
//
// The stream owns the underlying connection, the attempt context and,
// if the client bounds concurrent streams, a stream slot. All of them
// are released when the stream reaches its end, fails, or is closed.
// A Stream is not safe for concurrent use.
type Stream struct {
	r            *run
	a            stream.Adapter
	body         Body
	ctx          context.Context
	chunkTimeout time.Duration
	abortAttempt context.CancelFunc
	release      func()

	timedOut atomic.Bool
	once     sync.Once
	closeErr error
	err      error
	rest     []byte
}

// Execution returns the execution this stream belongs to. Its End and
// Err fields are set once the stream ends.
func (s *Stream) Execution() *request.Execution {
	return s.r.e
}

// Next returns the next chunk of the body, or io.EOF at the end. Any
// other error is a *failure.Error and is sticky: every later call
// returns it again. OnError hooks are dispatched once, on the first
// failure.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	var timer *time.Timer
	if s.chunkTimeout > 0 {
		timer = time.AfterFunc(s.chunkTimeout, func() {
			s.timedOut.Store(true)
			s.abortAttempt()
		})
	}
	chunk, err := s.a.Next(ctx)
	if timer != nil {
		timer.Stop()
	}
	if err == nil {
		return chunk, nil
	}
	if err == io.EOF {
		s.err = io.EOF
		_ = s.finish()
		s.r.e.End = s.r.clk.Now()
		return nil, io.EOF
	}

	kind := failure.Stream
	var herr *HookError
	switch {
	case s.timedOut.Load():
		kind = failure.Timeout
	case errors.As(err, &herr):
		kind = failure.Hook
	case s.ctx.Err() != nil:
		kind = doneKind(s.ctx)
	case ctx.Err() != nil:
		kind = doneKind(ctx)
	}
	_ = s.finish()
	_, s.err = s.r.fail(s.ctx, kind, err)
	return nil, s.err
}

// Read implements io.Reader on top of Next, using the context the
// stream was opened with.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.rest) == 0 {
		chunk, err := s.Next(s.ctx)
		if err != nil {
			return 0, err
		}
		s.rest = chunk
	}
	n := copy(p, s.rest)
	s.rest = s.rest[n:]
	return n, nil
}

// Close abandons the stream and releases its resources. Closing a
// stream is not a failure, so no hooks run. Close may be called more
// than once.
func (s *Stream) Close() error {
	if s.err == nil {
		s.err = ErrStreamClosed
	}
	return s.finish()
}

func (s *Stream) finish() error {
	s.once.Do(func() {
		s.closeErr = s.body.Close()
		s.release()
	})
	return s.closeErr
}

// observed dispatches OnStream for every chunk leaving the stage chain.
type observed struct {
	up    stream.Adapter
	hooks *Pipeline
	e     *request.Execution
	clk   clock.Clock
}

func (o *observed) Next(ctx context.Context) ([]byte, error) {
	chunk, err := o.up.Next(ctx)
	if err != nil {
		return nil, err
	}
	if err = o.hooks.Dispatch(ctx, &Payload{Hook: OnStream, Execution: o.e, Chunk: chunk, Time: o.clk.Now()}); err != nil {
		return nil, err
	}
	return chunk, nil
}
