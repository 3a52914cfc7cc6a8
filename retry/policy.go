// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"math"
	"time"
)

// A Policy controls how many attempts an Executor makes and how long it
// waits between them. A Policy is a plain value and is never modified by
// the Executor, so it is safe to share between goroutines.
type Policy struct {
	// MaxAttempts is the total number of attempts allowed, including
	// the initial one. It must be at least 1.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps every backoff. It must be at least BaseDelay.
	MaxDelay time.Duration

	// Multiplier is the growth factor between successive backoffs. It
	// must be greater than 1.
	Multiplier float64

	// Jitter enables full jitter: each backoff is drawn uniformly from
	// zero up to the computed value.
	Jitter bool
}

// DefaultPolicy allows 4 attempts (3 retries) with backoffs starting at
// one second, doubling, and capped at 10 seconds, with jitter.
var DefaultPolicy = Policy{
	MaxAttempts: 4,
	BaseDelay:   time.Second,
	MaxDelay:    10 * time.Second,
	Multiplier:  2,
	Jitter:      true,
}

// Never is a policy that never retries.
var Never = Policy{
	MaxAttempts: 1,
	MaxDelay:    0,
	Multiplier:  2,
}

// Validate reports whether p is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("reqflow/retry: max attempts must be at least 1")
	}
	if p.BaseDelay < 0 {
		return errors.New("reqflow/retry: base delay must not be negative")
	}
	if p.MaxDelay < p.BaseDelay {
		return errors.New("reqflow/retry: max delay must be at least base delay")
	}
	if !(p.Multiplier > 1) || math.IsInf(p.Multiplier, 0) {
		return errors.New("reqflow/retry: multiplier must be greater than 1")
	}
	return nil
}

// Backoff returns the backoff before retry n, where n = 1 is the wait
// after the first failed attempt. Jitter is not applied.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	f := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(n-1))
	if math.IsNaN(f) || f >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(f)
}

// Delay returns the backoff before retry n with jitter applied if the
// policy asks for it. A nil j uses a package-level source.
func (p Policy) Delay(n int, j *Jitter) time.Duration {
	d := p.Backoff(n)
	if !p.Jitter {
		return d
	}
	if j == nil {
		j = defaultJitter
	}
	return j.Apply(d)
}
