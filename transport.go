// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"context"
	"io"
	"net/http"

	"github.com/gogama/reqflow/request"
	"github.com/gogama/reqflow/stream"
)

// A Body is a response body as delivered by a Transport: a lazy chunk
// sequence which must be closed once the caller is done with it.
type Body interface {
	stream.Adapter
	io.Closer
}

// A Transport performs a single attempt: it sends the execution's
// Request and returns the response head and a lazily read body.
//
// The context bounds the attempt, including reading the body. Connection
// reuse, TLS and protocol version are entirely the transport's concern.
// A Transport marks errors that a retry cannot cure with
// failure.Permanent. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, e *request.Execution) (*request.Head, Body, error)
}

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// HTTPTransport is a Transport sending requests through an HTTPDoer,
// typically an *http.Client. Its zero value uses http.DefaultClient.
type HTTPTransport struct {
	// Doer sends the requests. If nil, http.DefaultClient is used.
	Doer HTTPDoer

	// ReadSize is the most bytes read from the body per chunk. If zero,
	// stream.DefaultReadSize is used.
	ReadSize int
}

// Send converts the execution's Request into an http.Request bound to
// ctx and sends it.
func (t *HTTPTransport) Send(ctx context.Context, e *request.Execution) (*request.Head, Body, error) {
	req := e.Request.ToRequest(ctx)
	resp, err := t.doer().Do(req)
	if err != nil {
		return nil, nil, err
	}
	head := &request.Head{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Proto:         resp.Proto,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
	}
	return head, stream.FromReader(resp.Body, t.ReadSize), nil
}

// CloseIdleConnections invokes the same method on the transport's
// HTTPDoer, if it has one.
func (t *HTTPTransport) CloseIdleConnections() {
	if ic, ok := t.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *HTTPTransport) doer() HTTPDoer {
	if t.Doer == nil {
		return http.DefaultClient
	}

	return t.Doer
}
