// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

// A Plan contains a logical HTTP request for execution by a client.
//
// The logical request described by a Plan may result in several
// lower-level transport attempts, for example if a failed attempt needs
// to be retried. The Plan itself is never modified by the client: each
// execution works on its own copy (Execution.Request), which PreRequest
// hooks may change.
//
// Plan fields are named and typed consistently with http.Request
// wherever possible, except for Header, which preserves field order,
// and Body, which is pre-buffered so that it can be resent on retry.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent.
	Header Header

	// Body is the pre-buffered request body to be sent. A nil or
	// empty body indicates no request body should be sent.
	Body []byte

	// Close stipulates whether to close the connection after each
	// attempt, preventing connection re-use between attempts.
	Close bool

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host will be sent.
	Host string
}

// NewPlan returns a new Plan given a method, URL, and optional body.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.Reader, or io.ReadCloser. If body is an io.Reader, it is
// read to the end and buffered into a []byte. If body is an
// io.ReadCloser, it is closed after buffering.
func NewPlan(method, url string, body interface{}) (*Plan, error) {
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("reqflow/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Method: method,
		URL:    u,
		Body:   b,
		Host:   u.Host,
	}, nil
}

// Clone returns a deep copy of p. Changes to the copy's URL, header or
// body do not affect p.
func (p *Plan) Clone() *Plan {
	p2 := new(Plan)
	*p2 = *p
	if p.URL != nil {
		u := *p.URL
		if p.URL.User != nil {
			user := *p.URL.User
			u.User = &user
		}
		p2.URL = &u
	}
	p2.Header = p.Header.Clone()
	if p.Body != nil {
		p2.Body = append([]byte(nil), p.Body...)
	}
	return p2
}

// AddCookie adds a cookie to the request. Per RFC 6265 section 5.4,
// AddCookie does not attach more than one Cookie header field. That
// means all cookies, if any, are written into the same line,
// separated by semicolons.
func (p *Plan) AddCookie(c *http.Cookie) {
	c2 := &http.Cookie{Name: c.Name, Value: c.Value}
	s := c2.String()
	if h := p.Header.Get("Cookie"); h != "" {
		p.Header.Set("Cookie", h+"; "+s)
	} else {
		p.Header.Set("Cookie", s)
	}
}

// SetBasicAuth sets the request plan's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
//
// With HTTP Basic Authentication the provided username and password
// are not encrypted.
func (p *Plan) SetBasicAuth(username, password string) {
	p.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToRequest creates an HTTP request corresponding to the given request
// plan. The context of the new request is set to ctx, which may not be
// nil.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = p.Method
	if r.Method == "" {
		r.Method = "GET"
	}
	r.URL = p.URL
	r.Header = p.Header.HTTP()
	if len(p.Body) > 0 {
		body := p.Body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	r.Close = p.Close
	r.Host = p.Host
	return r
}

// basicAuth is lifted verbatim from net/http/client.go.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// validMethod reports whether method is an RFC 7230 token. The empty
// string is always interpreted as "GET" before reaching here.
func validMethod(method string) bool {
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// hasPort is lifted verbatim from net/http/http.go
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
