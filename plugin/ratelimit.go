// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/clock"
)

// ErrRateLimited is the reason a RateLimit registrant refuses a request.
var ErrRateLimited = errors.New("reqflow/plugin: rate limit exceeded")

// RateLimit is a registrant which refuses requests beyond a budget of
// requests per minute. The budget refills continuously and up to a full
// minute's worth of requests may be made in a burst.
//
// A refused request fails before its first attempt with a hook error
// wrapping ErrRateLimited, which is never retried.
//
// RateLimit implements reqflow.Initializer and accepts the setting
// "requests_per_minute" (integer).
type RateLimit struct {
	hookSet
	limiter *rate.Limiter
	clock   clock.Clock
}

// NewRateLimit returns a RateLimit registrant allowing perMinute
// requests per minute. A nil clk means clock.Wall.
func NewRateLimit(perMinute int, clk clock.Clock) *RateLimit {
	if perMinute < 1 {
		panic("reqflow/plugin: requests per minute must be positive")
	}
	return &RateLimit{
		hookSet: hookSet{reqflow.PreRequest},
		limiter: rate.NewLimiter(perMinuteLimit(perMinute), perMinute),
		clock:   clock.Or(clk),
	}
}

// Name returns "rate-limit".
func (*RateLimit) Name() string { return "rate-limit" }

// Initialize applies settings.
func (r *RateLimit) Initialize(settings map[string]any) error {
	n, ok, err := settingInt(settings, "requests_per_minute")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if n < 1 {
		return fmt.Errorf("setting \"requests_per_minute\": must be positive, got %d", n)
	}
	now := r.clock.Now()
	r.limiter.SetLimitAt(now, perMinuteLimit(n))
	r.limiter.SetBurstAt(now, n)
	return nil
}

// Handle takes one request from the budget, or refuses the request.
func (r *RateLimit) Handle(_ context.Context, _ *reqflow.Payload) error {
	if !r.limiter.AllowN(r.clock.Now(), 1) {
		return ErrRateLimited
	}
	return nil
}

func perMinuteLimit(n int) rate.Limit {
	return rate.Limit(float64(n) / 60)
}
