// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/failure"
	"github.com/gogama/reqflow/request"
)

// TracerName is the instrumentation name of the Tracing registrant's
// tracer.
const TracerName = "github.com/gogama/reqflow/plugin"

type spanKey struct{}

// Tracing is a registrant which wraps every request in an OpenTelemetry
// client span and injects the span context into the request headers.
// Retries are recorded as span events.
//
// In streaming mode the span ends when the stream handle is returned,
// not when the body has been consumed.
type Tracing struct {
	hookSet
	tracer trace.Tracer

	// Propagator injects the span context into request headers. If nil,
	// otel.GetTextMapPropagator is used.
	Propagator propagation.TextMapPropagator
}

// NewTracing returns a Tracing registrant using a tracer from tp. A nil
// tp means otel.GetTracerProvider.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{
		hookSet: hookSet{reqflow.PreRequest, reqflow.OnRetry, reqflow.PostRequest, reqflow.OnError},
		tracer:  tp.Tracer(TracerName),
	}
}

// Name returns "tracing".
func (*Tracing) Name() string { return "tracing" }

// Handle starts, annotates or ends the request span.
func (t *Tracing) Handle(ctx context.Context, p *reqflow.Payload) error {
	e := p.Execution
	if p.Hook == reqflow.PreRequest {
		ctx, span := t.tracer.Start(ctx, "HTTP "+e.Request.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", e.Request.Method),
				attribute.String("url.full", e.Request.URL.Redacted()),
				attribute.String("reqflow.execution_id", e.ID.String()),
			))
		e.SetValue(spanKey{}, span)
		t.propagator().Inject(ctx, headerCarrier{&e.Request.Header})
		return nil
	}

	span, ok := e.Value(spanKey{}).(trace.Span)
	if !ok {
		return nil
	}
	switch p.Hook {
	case reqflow.OnRetry:
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("reqflow.attempt", p.Attempt),
			attribute.Int64("reqflow.delay_ms", p.Delay.Milliseconds()),
		))
	case reqflow.PostRequest:
		span.SetAttributes(
			attribute.Int("http.response.status_code", e.StatusCode()),
			attribute.Int("reqflow.attempts", e.Attempt),
		)
		span.SetStatus(codes.Ok, "")
		span.End()
	case reqflow.OnError:
		span.SetAttributes(
			attribute.String("error.type", failure.KindOf(p.Err).String()),
			attribute.Int("reqflow.attempts", e.Attempt),
		)
		if code := e.StatusCode(); code != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", code))
		}
		span.RecordError(p.Err)
		span.SetStatus(codes.Error, p.Err.Error())
		span.End()
	}
	return nil
}

func (t *Tracing) propagator() propagation.TextMapPropagator {
	if t.Propagator != nil {
		return t.Propagator
	}
	return otel.GetTextMapPropagator()
}

// headerCarrier adapts a request header to propagation.TextMapCarrier.
type headerCarrier struct {
	h *request.Header
}

func (c headerCarrier) Get(key string) string {
	return c.h.Get(key)
}

func (c headerCarrier) Set(key, value string) {
	c.h.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	fields := c.h.Fields()
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Name)
	}
	return keys
}
