// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"

	"github.com/google/uuid"

	"github.com/gogama/reqflow"
)

// DefaultRequestIDHeader is the header a RequestID registrant sets when
// created with an empty header name.
const DefaultRequestIDHeader = "X-Request-ID"

// RequestID is a registrant which tags every request with a unique
// identifier header, unless the request already carries one. All
// attempts of a request share the identifier.
type RequestID struct {
	hookSet
	header string
	newID  func() string
}

// NewRequestID returns a RequestID registrant setting header, or
// DefaultRequestIDHeader if header is empty, to a random UUID.
func NewRequestID(header string) *RequestID {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return &RequestID{
		hookSet: hookSet{reqflow.PreRequest},
		header:  header,
		newID:   uuid.NewString,
	}
}

// Name returns "request-id".
func (*RequestID) Name() string { return "request-id" }

// Handle sets the identifier header if absent.
func (r *RequestID) Handle(_ context.Context, p *reqflow.Payload) error {
	hdr := &p.Execution.Request.Header
	if !hdr.Has(r.header) {
		hdr.Set(r.header, r.newID())
	}
	return nil
}
