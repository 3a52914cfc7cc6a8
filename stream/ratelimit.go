// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/gogama/reqflow/clock"
)

// A TokenBucket meters bytes. It holds at most Capacity tokens, starts
// full, and refills continuously at Rate tokens per second of clock
// time. Waiting for tokens sleeps on the clock rather than polling, and
// the token count never goes negative.
//
// A TokenBucket is safe for concurrent use, so one bucket may be shared
// between several streams to limit their combined throughput.
type TokenBucket struct {
	lim *rate.Limiter
	clk clock.Clock
}

// NewTokenBucket returns a full bucket refilling at bytesPerSecond and
// holding at most capacity tokens. A nil clk means clock.Wall.
func NewTokenBucket(bytesPerSecond float64, capacity int, clk clock.Clock) *TokenBucket {
	if !(bytesPerSecond > 0) || math.IsInf(bytesPerSecond, 0) {
		panic("reqflow/stream: rate must be positive and finite")
	}
	if capacity < 1 {
		panic("reqflow/stream: capacity must be positive")
	}
	return &TokenBucket{
		lim: rate.NewLimiter(rate.Limit(bytesPerSecond), capacity),
		clk: clock.Or(clk),
	}
}

// Capacity returns the most tokens the bucket can hold.
func (b *TokenBucket) Capacity() int {
	return b.lim.Burst()
}

// Rate returns the refill rate in tokens per second.
func (b *TokenBucket) Rate() float64 {
	return float64(b.lim.Limit())
}

// Tokens returns the number of tokens currently available.
func (b *TokenBucket) Tokens() float64 {
	return b.lim.TokensAt(b.clk.Now())
}

// Wait blocks until n tokens are available and then takes them. It
// returns early with the context's error if ctx is done first. Parameter
// n may not exceed Capacity.
func (b *TokenBucket) Wait(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if n > b.Capacity() {
		panic("reqflow/stream: wait exceeds bucket capacity")
	}
	for {
		now := b.clk.Now()
		if b.lim.AllowN(now, n) {
			return nil
		}
		deficit := float64(n) - b.lim.TokensAt(now)
		d := time.Duration(math.Ceil(deficit / b.Rate() * float64(time.Second)))
		if d < 1 {
			d = 1
		}
		if err := b.clk.Sleep(ctx, d); err != nil {
			return err
		}
	}
}

type rateLimited struct {
	up      Adapter
	bucket  *TokenBucket
	pending []byte
	err     error
}

// NewRateLimited returns an adapter which releases a chunk only after
// taking as many tokens from bucket as the chunk has bytes. A chunk
// larger than the bucket's capacity is split into capacity-sized pieces
// which are released one at a time.
func NewRateLimited(up Adapter, bucket *TokenBucket) Adapter {
	if bucket == nil {
		panic("reqflow/stream: nil token bucket")
	}
	return &rateLimited{up: up, bucket: bucket}
}

// RateLimited returns a Stage which gives each stream its own bucket
// refilling at bytesPerSecond with the given burst capacity. A burst
// below 1 defaults to one second's worth of bytes. A nil clk means
// clock.Wall.
func RateLimited(bytesPerSecond float64, burst int, clk clock.Clock) Stage {
	if burst < 1 {
		burst = int(math.Max(1, math.Ceil(bytesPerSecond)))
	}
	NewTokenBucket(bytesPerSecond, burst, clk) // validates arguments
	return func(up Adapter, _ int64) Adapter {
		return NewRateLimited(up, NewTokenBucket(bytesPerSecond, burst, clk))
	}
}

// SharedRateLimited returns a Stage which threads one bucket through
// every stream it is applied to.
func SharedRateLimited(bucket *TokenBucket) Stage {
	if bucket == nil {
		panic("reqflow/stream: nil token bucket")
	}
	return func(up Adapter, _ int64) Adapter {
		return NewRateLimited(up, bucket)
	}
}

func (r *rateLimited) Next(ctx context.Context) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(r.pending) == 0 {
		chunk, err := pull(ctx, r.up)
		if err != nil {
			r.err = wrap("rate limited", err)
			return nil, r.err
		}
		r.pending = chunk
	}
	n := len(r.pending)
	if c := r.bucket.Capacity(); n > c {
		n = c
	}
	if err := r.bucket.Wait(ctx, n); err != nil {
		r.err = wrap("rate limited", err)
		return nil, r.err
	}
	out := r.pending[:n:n]
	r.pending = r.pending[n:]
	return out, nil
}
