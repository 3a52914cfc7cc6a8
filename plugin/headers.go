// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"
	"net/http"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/request"
)

// DefaultUserAgent is the User-Agent sent by a Headers registrant
// created with an empty user agent.
const DefaultUserAgent = "reqflow/" + Version

// Headers is a registrant which adds default header fields to every
// request. A default never replaces a field the request already has:
// a name is only added when the request has no field with that name.
type Headers struct {
	hookSet
	userAgent string
	defaults  request.Header
}

// NewHeaders returns a Headers registrant sending the given user agent
// and default fields. An empty userAgent means DefaultUserAgent. The
// defaults are copied.
func NewHeaders(userAgent string, defaults map[string]string) *Headers {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h := &Headers{
		hookSet:   hookSet{reqflow.PreRequest},
		userAgent: userAgent,
	}
	for name, value := range defaults {
		h.defaults.Add(name, value)
	}
	return h
}

// Add appends a default field. Several fields with the same name are
// all added to requests lacking that name. Add must not be called
// after registration.
func (h *Headers) Add(name, value string) *Headers {
	h.defaults.Add(name, value)
	return h
}

// Name returns "headers".
func (*Headers) Name() string { return "headers" }

// Handle adds the defaults missing from the request.
func (h *Headers) Handle(_ context.Context, p *reqflow.Payload) error {
	hdr := &p.Execution.Request.Header
	missing := make(map[string]bool)
	h.defaults.Each(func(name, _ string) bool {
		key := http.CanonicalHeaderKey(name)
		if _, seen := missing[key]; !seen {
			missing[key] = !hdr.Has(name)
		}
		return true
	})
	h.defaults.Each(func(name, value string) bool {
		if missing[http.CanonicalHeaderKey(name)] {
			hdr.Add(name, value)
		}
		return true
	})
	if !hdr.Has("User-Agent") {
		hdr.Set("User-Agent", h.userAgent)
	}
	return nil
}
