// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/gogama/reqflow/clock"
	"github.com/gogama/reqflow/failure"
	"github.com/gogama/reqflow/request"
	"github.com/gogama/reqflow/retry"
	"github.com/gogama/reqflow/stream"
	"github.com/gogama/reqflow/timeout"
)

// snippetSize is how much of a non-accepted response body is kept in
// the resulting *failure.StatusError.
const snippetSize = 512

// A StreamConfig asks Client.Run to hand the response body back as a
// Stream instead of materializing it.
type StreamConfig struct {
	// Stages are applied to the body in order, the first stage being
	// closest to the transport.
	Stages []stream.Stage

	// ChunkTimeout, if positive, bounds the wait for each chunk. When
	// it expires the attempt is aborted and the stream fails with an
	// error of kind failure.Timeout.
	ChunkTimeout time.Duration
}

// A Response is the outcome of Client.Run. Execution is never nil.
// Stream is set only for successful streaming runs.
type Response struct {
	Execution *request.Execution
	Stream    *Stream
}

// A Client executes request plans: it runs the hook pipeline around a
// supervised sequence of transport attempts, retries the ones that fail
// retryably, and materializes or streams the response body. Its zero
// value is a valid configuration.
//
// The zero value client uses an HTTPTransport over http.DefaultClient,
// retry.DefaultPolicy, retry.DefaultClassifier, timeout.DefaultPolicy,
// the wall clock, no hooks and no validation.
//
// The Transport typically has internal state (cached TCP connections),
// so Client instances should be reused instead of created as needed. A
// Client is safe for concurrent use by multiple goroutines but must not
// be copied after first use.
type Client struct {
	// Transport performs individual attempts. If nil, an HTTPTransport
	// using http.DefaultClient is used.
	Transport Transport

	// RetryPolicy bounds attempts and shapes backoff. If its
	// MaxAttempts is zero, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy

	// TimeoutPolicy sets the timeout of each attempt. The timeout
	// covers the wait for the response head. If nil,
	// timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy

	// Classifier decides which attempt failures are retried. If nil,
	// retry.DefaultClassifier is used.
	Classifier retry.Classifier

	// Hooks is the registrant pipeline. If nil, no hooks run.
	Hooks *Pipeline

	// URLValidator, if not nil, checks the request URL after the
	// PreRequest hook. A failure is fatal.
	URLValidator URLValidator

	// HeaderValidator, if not nil, checks every request header field
	// after the PreRequest hook. A failure is fatal.
	HeaderValidator HeaderValidator

	// AcceptStatus decides which status codes count as a successful
	// attempt. Any other status becomes a *failure.StatusError. If nil,
	// every status below 400 is accepted.
	AcceptStatus func(code int) bool

	// MaxBodySize, if positive, is the largest body a non-streaming run
	// will materialize. A larger body fails with kind
	// failure.BodyTooLarge and is not retried.
	MaxBodySize int64

	// Timeout, if positive, bounds each run from start to finish,
	// including retries, backoff and reading the body.
	Timeout time.Duration

	// MaxConcurrentStreams, if positive, bounds the number of open
	// Stream handles. A streaming run waits for a free slot before its
	// first attempt.
	MaxConcurrentStreams int

	// Clock drives backoff, deadlines and execution timestamps. If nil,
	// clock.Wall is used.
	Clock clock.Clock

	// Logger receives debug events for each attempt and retry. If nil,
	// nothing is logged.
	Logger *zerolog.Logger

	streamsOnce sync.Once
	streams     *semaphore.Weighted
}

// Run executes a request plan end to end.
//
// The control flow is: PreRequest hooks, validation, then the retry
// loop of transport attempts with OnRetry hooks and backoff between
// them, then PreResponse hooks, then either materializing the body (sc
// nil) or building the stream chain (sc not nil), then PostResponse and
// PostRequest hooks. PreRequest, PreResponse, PostResponse and
// PostRequest are each dispatched at most once per run, however many
// attempts are made.
//
// Parameter policy overrides the client's retry policy for this run if
// not nil.
//
// The returned Response is never nil. On failure, OnError hooks are
// dispatched once and the error returned is a *failure.Error whose Kind
// names the phase that produced it and whose Op and URL identify the
// request. The same error is stored in Response.Execution.Err.
//
// In streaming mode the caller must drain or Close the returned Stream.
func (c *Client) Run(ctx context.Context, p *request.Plan, policy *retry.Policy, sc *StreamConfig) (*Response, error) {
	if ctx == nil {
		panic("reqflow: nil context")
	}
	if p == nil {
		panic("reqflow: nil plan")
	}

	clk := clock.Or(c.Clock)
	e := request.NewExecution(p)
	e.Start = clk.Now()
	r := &run{
		c:      c,
		e:      e,
		clk:    clk,
		log:    c.logger(),
		hooks:  c.Hooks,
		policy: c.retryPolicy(policy),
		cancel: func() {},
	}

	var deadline time.Time
	if c.Timeout > 0 {
		ctx, r.cancel = context.WithTimeout(ctx, c.Timeout)
		deadline = e.Start.Add(c.Timeout)
	}
	if dl, ok := ctx.Deadline(); ok {
		d := e.Start.Add(time.Until(dl))
		if deadline.IsZero() || d.Before(deadline) {
			deadline = d
		}
	}

	return r.exec(ctx, deadline, sc)
}

// Do executes a request plan and returns the execution with its body
// fully materialized. It is Run without a retry policy override or
// stream configuration.
//
// The returned Execution is never nil. If an error is returned, the
// Execution's Err field references the same error.
//
// For simple use cases, the Get, Head, Post, and PostForm methods may
// prove easier to use than Do.
func (c *Client) Do(ctx context.Context, p *request.Plan) (*request.Execution, error) {
	resp, err := c.Run(ctx, p, nil, nil)
	return resp.Execution, err
}

// Stream executes a request plan and returns a handle for consuming the
// response body as it arrives. A nil sc means a bare stream with no
// stages. The handle is nil if an error is returned.
func (c *Client) Stream(ctx context.Context, p *request.Plan, sc *StreamConfig) (*Stream, error) {
	if sc == nil {
		sc = &StreamConfig{}
	}
	resp, err := c.Run(ctx, p, nil, sc)
	return resp.Stream, err
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Get(ctx context.Context, url string) (*request.Execution, error) {
	return Get(ctx, c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(ctx context.Context, url string) (*request.Execution, error) {
	return Head(ctx, c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; io.Reader; and io.ReadCloser.
func (c *Client) Post(ctx context.Context, url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(ctx, c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, url string, data url.Values) (*request.Execution, error) {
	return PostForm(ctx, c, url, data)
}

// CloseIdleConnections invokes the same method on the client's
// Transport, if it has one.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.transport().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) transport() Transport {
	if c.Transport == nil {
		return &HTTPTransport{}
	}

	return c.Transport
}

func (c *Client) retryPolicy(override *retry.Policy) retry.Policy {
	if override != nil {
		return *override
	}
	if c.RetryPolicy.MaxAttempts == 0 {
		return retry.DefaultPolicy
	}
	return c.RetryPolicy
}

func (c *Client) accept(code int) bool {
	if c.AcceptStatus == nil {
		return code < 400
	}
	return c.AcceptStatus(code)
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func (c *Client) streamSlots() *semaphore.Weighted {
	if c.MaxConcurrentStreams <= 0 {
		return nil
	}
	c.streamsOnce.Do(func() {
		c.streams = semaphore.NewWeighted(int64(c.MaxConcurrentStreams))
	})
	return c.streams
}

func (c *Client) validate(p *request.Plan) error {
	if c.URLValidator != nil {
		if err := c.URLValidator.ValidateURL(p.URL); err != nil {
			return &ValidationError{Check: "url", Reason: err}
		}
	}
	if c.HeaderValidator != nil {
		var err error
		p.Header.Each(func(name, value string) bool {
			err = c.HeaderValidator.ValidateHeader(name, value)
			return err == nil
		})
		if err != nil {
			return &ValidationError{Check: "header", Reason: err}
		}
	}
	return nil
}

// A run is the state of one call to Client.Run.
type run struct {
	c      *Client
	e      *request.Execution
	clk    clock.Clock
	log    *zerolog.Logger
	hooks  *Pipeline
	policy retry.Policy
	cancel context.CancelFunc
}

func (r *run) exec(ctx context.Context, deadline time.Time, sc *StreamConfig) (*Response, error) {
	e := r.e
	if err := r.hooks.Dispatch(ctx, &Payload{Hook: PreRequest, Execution: e, Time: r.clk.Now()}); err != nil {
		return r.fail(ctx, failure.Hook, err)
	}
	if err := r.c.validate(e.Request); err != nil {
		return r.fail(ctx, failure.Validation, err)
	}

	releaseSlot := func() {}
	if sc != nil {
		if slots := r.c.streamSlots(); slots != nil {
			if err := slots.Acquire(ctx, 1); err != nil {
				return r.fail(ctx, doneKind(ctx), err)
			}
			var once sync.Once
			releaseSlot = func() { once.Do(func() { slots.Release(1) }) }
		}
	}

	var head *request.Head
	var body Body
	x := retry.Executor{
		Policy:       r.policy,
		Classifier:   r.c.Classifier,
		Timeout:      r.c.TimeoutPolicy,
		Clock:        r.clk,
		Deadline:     deadline,
		AfterAttempt: r.afterAttempt,
		OnRetry:      r.onRetry,
	}
	release, err := x.Execute(ctx, func(actx context.Context, attempt int) error {
		closeBody(body)
		head, body = nil, nil
		e.Attempt = attempt
		e.Head = nil
		h, b, err := r.send(actx)
		if err != nil {
			return err
		}
		head, body = h, b
		e.Head = h
		return nil
	})
	if err != nil {
		closeBody(body)
		releaseSlot()
		return r.fail(ctx, attemptKind(err), err)
	}

	if err := r.hooks.Dispatch(ctx, &Payload{Hook: PreResponse, Execution: e, Head: head, Time: r.clk.Now()}); err != nil {
		closeBody(body)
		release()
		releaseSlot()
		return r.fail(ctx, failure.Hook, err)
	}

	if sc == nil {
		return r.materialize(ctx, body, release)
	}

	st := &Stream{
		r:            r,
		body:         body,
		ctx:          ctx,
		chunkTimeout: sc.ChunkTimeout,
		abortAttempt: release,
		release: func() {
			release()
			releaseSlot()
			r.cancel()
		},
	}
	a := stream.Chain(body, e.Head.ContentLength, sc.Stages...)
	if r.hooks.Handles(OnStream) {
		a = &observed{up: a, hooks: r.hooks, e: e.Clone(), clk: r.clk}
	}
	st.a = a

	if err := r.hooks.Dispatch(ctx, &Payload{Hook: PostResponse, Execution: e, Head: e.Head, Time: r.clk.Now()}); err != nil {
		_ = st.finish()
		return r.fail(ctx, failure.Hook, err)
	}
	if err := r.hooks.Dispatch(ctx, &Payload{Hook: PostRequest, Execution: e.Clone(), Head: e.Head, Time: r.clk.Now()}); err != nil {
		_ = st.finish()
		return r.fail(ctx, failure.Hook, err)
	}
	return &Response{Execution: e, Stream: st}, nil
}

func (r *run) materialize(ctx context.Context, body Body, release context.CancelFunc) (*Response, error) {
	e := r.e
	b, err := stream.Collect(ctx, body, r.c.MaxBodySize)
	closeBody(body)
	release()
	if err != nil {
		kind := failure.Stream
		if failure.KindOf(err) == failure.BodyTooLarge {
			kind = failure.BodyTooLarge
		} else if ctx.Err() != nil {
			kind = doneKind(ctx)
		}
		return r.fail(ctx, kind, err)
	}
	if b == nil {
		b = []byte{}
	}
	e.Body = b

	if err := r.hooks.Dispatch(ctx, &Payload{Hook: PostResponse, Execution: e, Head: e.Head, Time: r.clk.Now()}); err != nil {
		return r.fail(ctx, failure.Hook, err)
	}
	e.End = r.clk.Now()
	if err := r.hooks.Dispatch(ctx, &Payload{Hook: PostRequest, Execution: e.Clone(), Head: e.Head, Time: r.clk.Now()}); err != nil {
		return r.fail(ctx, failure.Hook, err)
	}
	r.cancel()
	return &Response{Execution: e}, nil
}

// send makes one transport call, turning a non-accepted status into a
// *failure.StatusError.
func (r *run) send(ctx context.Context) (*request.Head, Body, error) {
	h, b, err := r.c.transport().Send(ctx, r.e)
	if err != nil {
		return nil, nil, failure.New(failure.Transport, err)
	}
	if h == nil {
		closeBody(b)
		return nil, nil, failure.New(failure.Transport, errors.New("transport returned no response head"))
	}
	if r.c.accept(h.StatusCode) {
		return h, b, nil
	}
	snippet := readSnippet(ctx, b)
	closeBody(b)
	r.e.Head = h
	return nil, nil, failure.New(failure.Transport, &failure.StatusError{
		StatusCode: h.StatusCode,
		Status:     h.Status,
		Header:     h.Header,
		Snippet:    snippet,
	})
}

func (r *run) afterAttempt(attempt int, err error) {
	r.e.Err = err
	if failure.KindOf(err) == failure.Timeout {
		r.e.AttemptTimeouts++
	}
	ev := r.log.Debug().
		Str("id", r.e.ID.String()).
		Int("attempt", attempt).
		Int("status", r.e.StatusCode())
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("attempt finished")
}

func (r *run) onRetry(ctx context.Context, rt retry.Retry) error {
	r.log.Debug().
		Str("id", r.e.ID.String()).
		Int("attempt", rt.Attempt).
		Dur("delay", rt.Delay).
		Err(rt.Err).
		Msg("retrying")
	return r.hooks.Dispatch(ctx, &Payload{
		Hook:      OnRetry,
		Execution: r.e.Clone(),
		Err:       rt.Err,
		Attempt:   rt.Attempt,
		Delay:     rt.Delay,
		Time:      r.clk.Now(),
	})
}

// attemptKind names the phase behind an error out of the retry loop. A
// hook failure is reported as such even when the registrant wrapped the
// transport error it was shown.
func attemptKind(err error) failure.Kind {
	var herr *HookError
	if errors.As(err, &herr) {
		return failure.Hook
	}
	if kind := failure.KindOf(err); kind != failure.Unknown {
		return kind
	}
	return failure.Transport
}

// fail ends the run with an error of the given kind, giving OnError
// registrants a chance to observe it.
func (r *run) fail(ctx context.Context, kind failure.Kind, err error) (*Response, error) {
	ferr := &failure.Error{Kind: kind, Op: urlErrorOp(r.e.Request.Method), Err: err}
	if fe, ok := err.(*failure.Error); ok && fe.Kind == kind {
		ferr.Err = fe.Err
	}
	if u := r.e.Request.URL; u != nil {
		ferr.URL = u.Redacted()
	}
	r.e.Err = ferr
	r.e.End = r.clk.Now()
	r.log.Debug().
		Str("id", r.e.ID.String()).
		Stringer("kind", kind).
		Err(err).
		Msg("request failed")
	_ = r.hooks.Dispatch(context.WithoutCancel(ctx), &Payload{
		Hook:      OnError,
		Execution: r.e.Clone(),
		Err:       ferr,
		Time:      r.clk.Now(),
	})
	r.cancel()
	return &Response{Execution: r.e}, ferr
}

func readSnippet(ctx context.Context, b Body) []byte {
	var out []byte
	for len(out) < snippetSize {
		chunk, err := b.Next(ctx)
		if err != nil {
			break
		}
		out = append(out, chunk...)
	}
	if len(out) > snippetSize {
		out = out[:snippetSize]
	}
	return out
}

func closeBody(b Body) {
	if b != nil {
		_ = b.Close()
	}
}

func doneKind(ctx context.Context) failure.Kind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.DeadlineExceeded
	}
	return failure.Cancelled
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
