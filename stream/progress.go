// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"io"
)

// A ProgressFunc receives the number of bytes emitted so far and the
// total body length, or -1 if the length is unknown.
type ProgressFunc func(emitted, total int64)

type progress struct {
	up       Adapter
	total    int64
	emitted  int64
	reported bool
	fn       ProgressFunc
}

// NewProgress returns an adapter which passes chunks through unchanged
// and calls fn after releasing each one. The emitted count never
// decreases and equals the body length once upstream ends. An empty
// body is reported once, when upstream ends.
func NewProgress(up Adapter, total int64, fn ProgressFunc) Adapter {
	if fn == nil {
		panic("reqflow/stream: nil progress func")
	}
	return &progress{up: up, total: total, fn: fn}
}

// Progress returns a Stage applying NewProgress.
func Progress(fn ProgressFunc) Stage {
	if fn == nil {
		panic("reqflow/stream: nil progress func")
	}
	return func(up Adapter, total int64) Adapter {
		return NewProgress(up, total, fn)
	}
}

func (p *progress) Next(ctx context.Context) ([]byte, error) {
	chunk, err := pull(ctx, p.up)
	if err == io.EOF {
		if !p.reported {
			p.reported = true
			p.fn(p.emitted, p.total)
		}
		return nil, io.EOF
	} else if err != nil {
		return nil, wrap("progress", err)
	}
	p.emitted += int64(len(chunk))
	p.reported = true
	p.fn(p.emitted, p.total)
	return chunk, nil
}
