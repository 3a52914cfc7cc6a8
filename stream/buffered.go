// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"io"
)

type buffered struct {
	up   Adapter
	size int
	buf  []byte
	err  error
}

// NewBuffered returns an adapter which accumulates upstream chunks until
// at least size bytes are held, then yields them as one chunk. The final
// chunk holds whatever remains when upstream ends and may be smaller.
// If upstream fails, the bytes already held are yielded before the
// error.
func NewBuffered(up Adapter, size int) Adapter {
	if size < 1 {
		panic("reqflow/stream: buffer size must be positive")
	}
	return &buffered{up: up, size: size}
}

// Buffered returns a Stage applying NewBuffered.
func Buffered(size int) Stage {
	if size < 1 {
		panic("reqflow/stream: buffer size must be positive")
	}
	return func(up Adapter, _ int64) Adapter {
		return NewBuffered(up, size)
	}
}

func (b *buffered) Next(ctx context.Context) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	for len(b.buf) < b.size {
		chunk, err := pull(ctx, b.up)
		if err == io.EOF {
			break
		} else if err != nil {
			b.err = wrap("buffered", err)
			if len(b.buf) == 0 {
				return nil, b.err
			}
			out := b.buf
			b.buf = nil
			return out, nil
		}
		b.buf = append(b.buf, chunk...)
	}
	if len(b.buf) == 0 {
		b.err = io.EOF
		return nil, io.EOF
	}
	out := b.buf
	b.buf = nil
	return out, nil
}
