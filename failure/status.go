// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package failure

import (
	"net/http"
	"strconv"
)

// A StatusError reports an HTTP response whose status code was not
// accepted by the client. Snippet holds the leading bytes of the
// response body, for diagnosis.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Snippet    []byte
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
	}
	return "unexpected status " + status
}

// Retryable reports whether the status indicates a condition that may
// clear up on retry: any 5XX status, or 429 (Too Many Requests).
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
