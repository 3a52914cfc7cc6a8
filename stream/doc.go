// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package stream provides composable, pull-based transforms over a
response body.

An Adapter yields the body as a finite sequence of byte chunks. Each
call to Next produces the next chunk, or io.EOF once the sequence is
exhausted. Adapters wrap one another; every adapter does work only when
its consumer asks for the next chunk, so no byte is read from the
underlying body and no timer is consulted before then. That is the
backpressure mechanism, and it holds through any composition.

Four transforms are provided:

  - Buffered accumulates chunks until a size threshold is reached.
  - Chunked re-slices the body into fixed-size pieces.
  - RateLimited gates chunks through a TokenBucket.
  - Progress reports the cumulative byte count after every chunk.

Compose them in any order with Chain:

	a := stream.Chain(src, total,
		stream.Buffered(64*1024),
		stream.RateLimited(1<<20, 64*1024, nil),
		stream.Progress(func(n, total int64) { ... }),
	)

Errors from upstream are passed through unchanged in kind, wrapped in
an *Error naming each adapter they passed through. Adapters are not
safe for concurrent use.
*/
package stream
