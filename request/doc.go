// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Plan (describes a logical HTTP
request) and Execution (describes one run of a Plan).

A Plan describes how to make a logical HTTP request, potentially
involving repeated transport attempts if retry is necessary after a
failure. For those familiar with net/http, a Plan looks like a
stripped-down http.Request with all server-side fields removed, the
body replaced with a pre-buffered []byte so that it can be resent, and
the header replaced by Header, a multimap which keeps fields in
insertion order and compares names case-insensitively.

Create a plan to make a reliable HTTP request:

	p, err := request.NewPlan("GET", "https://example.com", nil)
	...
	resp, err := client.Do(ctx, p)
	...

Plans carry no context. Cancellation and the overall deadline come from
the context passed to the client, while the deadlines of individual
attempts are dictated by the client's timeout.Policy. An attempt may
thus fail either due to an attempt timeout, which is retryable, or due
to cancellation or the overall deadline, which are not.

The second core type is Execution, which holds the state of one run of
a plan: its attempt counter, the response head, the materialized body,
the current error and a metadata bag for hook registrants. You will
typically not allocate Execution instances yourself, but will work with
the ones handed out by the client.
*/
package request
