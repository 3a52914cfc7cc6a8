// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "net/http"

// A Head is the metadata of a response: everything except the body.
//
// PreResponse and PostResponse hooks may modify a Head, for example to
// normalize header values, but they have no access to the body.
type Head struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int

	// Status is the status line text, e.g. "200 OK". It may be empty.
	Status string

	// Proto is the protocol version, e.g. "HTTP/1.1".
	Proto string

	// Header holds the response header fields.
	Header http.Header

	// ContentLength is the declared body length, or -1 if unknown.
	ContentLength int64
}
