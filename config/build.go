// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/clock"
	"github.com/gogama/reqflow/plugin"
	"github.com/gogama/reqflow/request"
	"github.com/gogama/reqflow/retry"
	"github.com/gogama/reqflow/stream"
	"github.com/gogama/reqflow/timeout"
	"github.com/gogama/reqflow/validate"
)

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
		Multiplier:  c.Retry.Multiplier,
		Jitter:      c.Retry.Jitter,
	}
}

// Stages returns the configured stream stages in the order the body
// passes through them: buffering, then re-chunking, then rate limiting.
// Stages that are switched off are left out. A nil clk means
// clock.Wall.
func (c *Config) Stages(clk clock.Clock) []stream.Stage {
	var stages []stream.Stage
	if c.Stream.BufferSize > 0 {
		stages = append(stages, stream.Buffered(c.Stream.BufferSize))
	}
	if c.Stream.ChunkSize > 0 {
		stages = append(stages, stream.Chunked(c.Stream.ChunkSize))
	}
	if c.Stream.RateLimitBytesPerSecond > 0 {
		stages = append(stages, stream.RateLimited(c.Stream.RateLimitBytesPerSecond, c.Stream.RateLimitBurst, clk))
	}
	return stages
}

// StreamConfig returns a stream configuration for Client.Run built
// from the configured stages and chunk timeout.
func (c *Config) StreamConfig(clk clock.Clock) *reqflow.StreamConfig {
	return &reqflow.StreamConfig{
		Stages:       c.Stages(clk),
		ChunkTimeout: c.Stream.ChunkTimeout,
	}
}

// NewClient returns a client wired from the configuration. Its pipeline
// starts with a plugin.Headers registrant applying the configured user
// agent and default headers, followed by registrants in order. A nil
// transport means the client default.
func (c *Config) NewClient(transport reqflow.Transport, registrants ...reqflow.Registrant) (*reqflow.Client, error) {
	logger := c.Log.Logger(nil)
	hooks := &reqflow.Pipeline{Logger: logger}

	if err := hooks.Register(plugin.NewHeaders(c.Client.UserAgent, c.Client.DefaultHeaders)); err != nil {
		return nil, err
	}
	for _, r := range registrants {
		if err := hooks.Register(r); err != nil {
			return nil, err
		}
	}

	var tp timeout.Policy
	if c.Stream.AttemptTimeout > 0 {
		tp = timeout.Fixed(c.Stream.AttemptTimeout)
	} else {
		tp = timeout.Infinite
	}

	return &reqflow.Client{
		Transport:            transport,
		RetryPolicy:          c.RetryPolicy(),
		TimeoutPolicy:        tp,
		Hooks:                hooks,
		URLValidator:         validate.URL{Strict: c.Client.StrictURLs},
		HeaderValidator:      validate.Header{},
		MaxBodySize:          c.Client.MaxBodySize,
		Timeout:              c.Stream.OverallTimeout,
		MaxConcurrentStreams: c.Stream.MaxConcurrentStreams,
		Logger:               logger,
	}, nil
}

// NewPlan returns a request plan for ref resolved against the
// configured base URL. Without a base URL, ref is used as is.
func (c *Config) NewPlan(method, ref string, body interface{}) (*request.Plan, error) {
	if c.Client.BaseURL == "" {
		return request.NewPlan(method, ref, body)
	}
	base, err := url.Parse(c.Client.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("reqflow/config: invalid base url: %w", err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return request.NewPlan(method, base.ResolveReference(u).String(), body)
}

// Logger returns a zerolog logger writing to w, or to os.Stdout if w is
// nil. Pretty output uses a console writer. An unknown level means
// info.
func (l Log) Logger(w io.Writer) *zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if l.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(w).With().Timestamp().Logger().Level(level)
	return &logger
}
