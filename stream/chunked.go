// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"io"
)

type chunked struct {
	up   Adapter
	size int
	buf  []byte
	eof  bool
	tail error
	err  error
}

// NewChunked returns an adapter which re-slices the upstream sequence
// into chunks of exactly size bytes, except for the final chunk which
// may be shorter. If upstream fails, the bytes already held are yielded
// before the error.
func NewChunked(up Adapter, size int) Adapter {
	if size < 1 {
		panic("reqflow/stream: chunk size must be positive")
	}
	return &chunked{up: up, size: size}
}

// Chunked returns a Stage applying NewChunked.
func Chunked(size int) Stage {
	if size < 1 {
		panic("reqflow/stream: chunk size must be positive")
	}
	return func(up Adapter, _ int64) Adapter {
		return NewChunked(up, size)
	}
}

func (c *chunked) Next(ctx context.Context) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	for len(c.buf) < c.size && !c.eof {
		chunk, err := pull(ctx, c.up)
		if err == io.EOF {
			c.eof = true
		} else if err != nil {
			c.eof = true
			c.tail = wrap("chunked", err)
		} else {
			c.buf = append(c.buf, chunk...)
		}
	}
	if len(c.buf) == 0 {
		c.err = io.EOF
		if c.tail != nil {
			c.err = c.tail
		}
		return nil, c.err
	}
	n := c.size
	if n > len(c.buf) {
		n = len(c.buf)
	}
	out := c.buf[:n:n]
	c.buf = c.buf[n:]
	if len(c.buf) == 0 {
		c.buf = nil
	}
	return out, nil
}
