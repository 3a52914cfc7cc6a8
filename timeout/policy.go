// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"
)

// A State is the part of a request execution's state that a timeout
// policy may consult when choosing the next attempt timeout.
type State struct {
	// Attempt is the number of attempts already made.
	Attempt int
	// Timeouts is the number of attempts so far which timed out.
	Timeouts int
	// LastTimedOut reports whether the immediately preceding attempt
	// timed out. It is false before the first attempt.
	LastTimedOut bool
}

// A Policy decides the timeout for the next transport attempt of a
// request execution, whether the initial attempt or a retry.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the next attempt given the
	// current execution state s. A zero or negative return value means
	// the attempt is not bounded.
	Timeout(s State) time.Duration
}

// DefaultPolicy is the default timeout policy. It sets a fixed timeout
// of 30 seconds on each attempt.
var DefaultPolicy Policy = Fixed(30 * time.Second)

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that uses the same value to set
// every attempt timeout.
func Fixed(d time.Duration) Policy {
	return policy([]time.Duration{d})
}

// Adaptive constructs a timeout policy that lengthens the next timeout
// if the previous attempt timed out.
//
// Use Adaptive when the remote service often exhibits one-off slow
// responses that a quick timeout and retry can cure, but you also need
// protection from retry storms during a burst of sustained slowness.
//
// Parameter usual is the timeout returned for the initial attempt and
// for any retry where the immediately preceding attempt did not time
// out. Parameter after contains the timeouts returned when the previous
// attempt did time out: after[0] following the first timeout of the
// execution, after[1] following the second, and so on, with the last
// element repeating once after is exhausted.
//
// Consider the following timeout policy:
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// The policy p will use 200 milliseconds as the usual timeout, 1 second
// right after the first timeout, and 10 seconds after any later one.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	return policy(append(p, after...))
}

type policy []time.Duration

func (p policy) Timeout(s State) time.Duration {
	if !s.LastTimedOut {
		return p[0]
	}

	i := s.Timeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
