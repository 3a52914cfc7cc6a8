// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors by their transience, that is, by
// whether a retry after the error has a reasonable prospect of success.
// The retry package's default classifier builds on it.
package transient
