// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry drives repeated attempts of a single logical operation.
//
// A Policy bounds the number of attempts and shapes the exponential
// backoff between them. A Classifier decides whether a failed attempt
// is worth retrying. An Executor ties the two together with a per-attempt
// timeout policy, an optional overall deadline and a retry callback:
//
//	x := retry.Executor{
//		Policy:  retry.Policy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2},
//		Timeout: timeout.Fixed(5 * time.Second),
//	}
//	release, err := x.Execute(ctx, func(ctx context.Context, attempt int) error {
//		return send(ctx)
//	})
//
// The backoff before retry n (counting from 1) is
//
//	min(BaseDelay * Multiplier**(n-1), MaxDelay)
//
// and, when jitter is enabled, a uniformly random duration between zero
// and that value (the "Full Jitter" approach described in
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter).
package retry
