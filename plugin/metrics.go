// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/failure"
)

// inFlightKey holds an *atomic.Bool, set once the request is counted
// as done. Copies of the execution share it.
type inFlightKey struct{}

// Metrics is a registrant which records Prometheus metrics for every
// request. It is safe for concurrent use.
type Metrics struct {
	hookSet
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	retriesTotal     *prometheus.CounterVec
	streamBytesTotal prometheus.Counter
}

// NewMetrics creates the metrics on registerer reg. A nil reg means
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		hookSet: hookSet{reqflow.PreRequest, reqflow.PostRequest, reqflow.OnError, reqflow.OnRetry, reqflow.OnStream},
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_requests_total",
				Help: "Total number of completed requests by outcome",
			},
			[]string{"method", "status_code", "outcome"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqflow_request_duration_seconds",
				Help:    "Duration of requests in seconds, including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "outcome"},
		),
		requestsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "reqflow_requests_in_flight",
				Help: "Number of requests currently executing",
			},
		),
		retriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_retries_total",
				Help: "Total number of retries scheduled",
			},
			[]string{"method"},
		),
		streamBytesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "reqflow_stream_bytes_total",
				Help: "Total number of body bytes released to stream consumers",
			},
		),
	}
}

// Name returns "metrics".
func (*Metrics) Name() string { return "metrics" }

// Handle records p.
func (m *Metrics) Handle(_ context.Context, p *reqflow.Payload) error {
	e := p.Execution
	method := e.Request.Method
	switch p.Hook {
	case reqflow.PreRequest:
		m.requestsInFlight.Inc()
		e.SetValue(inFlightKey{}, new(atomic.Bool))
	case reqflow.OnRetry:
		m.retriesTotal.WithLabelValues(method).Inc()
	case reqflow.OnStream:
		m.streamBytesTotal.Add(float64(len(p.Chunk)))
	case reqflow.PostRequest:
		m.done(p, "success")
	case reqflow.OnError:
		m.done(p, failure.KindOf(p.Err).String())
	}
	return nil
}

func (m *Metrics) done(p *reqflow.Payload, outcome string) {
	e := p.Execution
	if flag, ok := e.Value(inFlightKey{}).(*atomic.Bool); ok {
		if !flag.CompareAndSwap(false, true) {
			return
		}
		m.requestsInFlight.Dec()
	}
	method := e.Request.Method
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(e.StatusCode()), outcome).Inc()
	m.requestDuration.WithLabelValues(method, outcome).Observe(elapsed(p).Seconds())
}
