// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package clock provides the time source used for retry backoff and
// stream rate limiting.
//
// Production code uses Wall, which reads the system clock and sleeps
// with a real timer. Tests use Fake, whose Sleep advances virtual time
// instantly, so that backoff and rate-limit behavior can be verified
// without real delays.
package clock

import (
	"context"
	"sync"
	"time"
)

// A Clock is an abstract time source.
//
// Implementations of Clock must be safe for concurrent use by multiple
// goroutines.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep pauses the current goroutine for at least duration d. It
	// returns early with ctx.Err() if ctx is done before d elapses.
	// A non-positive d returns immediately unless ctx is already done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Wall is the Clock backed by the system clock.
var Wall Clock = wall{}

type wall struct{}

func (wall) Now() time.Time {
	return time.Now()
}

func (wall) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Or returns c, or Wall if c is nil.
func Or(c Clock) Clock {
	if c == nil {
		return Wall
	}
	return c
}

// A Fake is a Clock whose time only moves when told to. Sleep advances
// the fake time by the requested duration and returns immediately.
//
// The zero value is a valid Fake starting at the zero time.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFake returns a Fake whose current time is start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep records d and advances the fake time by d. It fails without
// advancing time if ctx is already done.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Sleeps returns a copy of every duration passed to Sleep, in order.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := make([]time.Duration, len(f.sleeps))
	copy(s, f.sleeps)
	return s
}

// Slept returns the total duration passed to Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	for _, d := range f.sleeps {
		total += d
	}
	return total
}
