// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"
)

var defaultJitter = NewJitter(time.Now())

// A Jitter randomizes backoff durations. It is safe for concurrent use.
type Jitter struct {
	lock sync.Mutex
	rand *rand.Rand
}

// NewJitter constructs a Jitter from a random number generator seed
// value (as a time.Time, int, or int64) or a random number generator
// (as a *rand.Rand or rand.Source).
func NewJitter(seed interface{}) *Jitter {
	var s rand.Source
	switch x := seed.(type) {
	case time.Time:
		s = rand.NewSource(x.UnixNano())
	case int:
		s = rand.NewSource(int64(x))
	case int64:
		s = rand.NewSource(x)
	case *rand.Rand:
		if x == nil {
			panic("reqflow/retry: jitter may not be a typed nil")
		}
		return &Jitter{rand: x}
	case rand.Source:
		s = x
	default:
		panic("reqflow/retry: invalid jitter seed type")
	}
	return &Jitter{rand: rand.New(s)}
}

// Apply returns a uniformly random duration in [0, ceil]. A ceiling of
// zero or less is returned unchanged.
func (j *Jitter) Apply(ceil time.Duration) time.Duration {
	if ceil <= 0 {
		return ceil
	}
	j.lock.Lock()
	defer j.lock.Unlock()
	if ceil == 1<<63-1 {
		return time.Duration(j.rand.Int63())
	}
	return time.Duration(j.rand.Int63n(int64(ceil) + 1))
}
