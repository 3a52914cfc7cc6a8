// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"io"
)

// DefaultReadSize is the read size used by FromReader when none is
// given.
const DefaultReadSize = 8192

// A ReaderSource is an Adapter over an io.Reader, typically a response
// body. It is the head of an adapter chain.
type ReaderSource struct {
	r    io.Reader
	size int
	err  error
}

// FromReader returns a source reading at most size bytes per chunk
// from r. A size below 1 means DefaultReadSize. Close closes r if it is
// an io.Closer.
//
// The context passed to Next is not consulted: a reader which must be
// interruptible should be tied to a context when it is created, as
// net/http response bodies are.
func FromReader(r io.Reader, size int) *ReaderSource {
	if size < 1 {
		size = DefaultReadSize
	}
	return &ReaderSource{r: r, size: size}
}

// Next reads the next chunk.
func (s *ReaderSource) Next(_ context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	buf := make([]byte, s.size)
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			if err != nil {
				s.err = err
			}
			return buf[:n:n], nil
		}
		if err != nil {
			s.err = err
			return nil, err
		}
	}
}

// Close closes the underlying reader if it is an io.Closer.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type chunks struct {
	cs [][]byte
}

// FromChunks returns a source yielding the given chunks in order. Empty
// chunks are skipped.
func FromChunks(cs ...[]byte) Adapter {
	return &chunks{cs: cs}
}

func (c *chunks) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for len(c.cs) > 0 {
		b := c.cs[0]
		c.cs = c.cs[1:]
		if len(b) > 0 {
			return append([]byte(nil), b...), nil
		}
	}
	return nil, io.EOF
}
