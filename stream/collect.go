// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/gogama/reqflow/failure"
)

// Collect drains a and returns the concatenated chunks. If max is
// positive and the stream holds more than max bytes, Collect stops
// pulling and returns an error of kind failure.BodyTooLarge.
func Collect(ctx context.Context, a Adapter, max int64) ([]byte, error) {
	var out []byte
	for {
		chunk, err := a.Next(ctx)
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, err
		}
		if max > 0 && int64(len(out))+int64(len(chunk)) > max {
			return nil, failure.New(failure.BodyTooLarge,
				fmt.Errorf("stream size exceeds limit %d", max))
		}
		out = append(out, chunk...)
	}
}

type reader struct {
	ctx  context.Context
	a    Adapter
	rest []byte
	err  error
}

// NewReader returns an io.Reader which pulls chunks from a as it is
// read. Each pull uses ctx.
func NewReader(ctx context.Context, a Adapter) io.Reader {
	return &reader{ctx: ctx, a: a}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.rest) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.rest, r.err = r.a.Next(r.ctx)
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}
