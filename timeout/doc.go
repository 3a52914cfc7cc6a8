// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for choosing the timeout of each
// transport attempt within a request execution, including on retries.
// A generic interface for timeout policies is provided, Policy, along
// with the Fixed and Adaptive policy constructors and the built-in
// DefaultPolicy and Infinite policies.
package timeout
