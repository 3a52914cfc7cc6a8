// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package reqflow executes HTTP request plans with retries, per-attempt
timeouts, an ordered hook pipeline, and optional streaming of the
response body through a chain of stream stages.

Create a Client to begin making requests.

	client := &reqflow.Client{}
	ex, err := client.Get(ctx, "https://www.example.com")
	...
	ex, err := client.Post(ctx, "https://www.example.com/upload",
		"application/json", &buf)
	...
	ex, err := client.PostForm(ctx, "http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

For control over how the client sends requests and receives responses,
set a custom Transport, or wrap a GoLang standard HTTP client in an
HTTPTransport:

	client := &reqflow.Client{
		Transport: &reqflow.HTTPTransport{
			Doer: &http.Client{...},
		},
	}

For control over the client's retry decisions and timing, set a retry
policy and classifier from package retry:

	client := &reqflow.Client{
		RetryPolicy: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   250 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Multiplier:  2,
			Jitter:      true,
		},
		Classifier: retry.DefaultClassifier.Or(retry.StatusCode(409)),
	}

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout:

	client := &reqflow.Client{
		TimeoutPolicy: timeout.Fixed(10 * time.Second),
	}

To hook into the client's request execution, register a Registrant in
the client's Pipeline. Package plugin provides ready-made registrants
for logging, metrics, tracing, rate limiting and default headers.

	hooks := &reqflow.Pipeline{}
	err := hooks.Register(reqflow.NewRegistrant("audit", "1.0.0",
		func(_ context.Context, p *reqflow.Payload) error {
			log.Printf("Attempt %d to %s", p.Attempt, p.Execution.Request.URL)
			return nil
		}, reqflow.OnRetry))
	client := &reqflow.Client{
		Hooks: hooks,
	}

To consume a large body incrementally, ask for a Stream instead of an
execution, optionally shaping the body with stages from package stream:

	s, err := client.Stream(ctx, plan, &reqflow.StreamConfig{
		Stages: []stream.Stage{
			stream.Buffered(64 * 1024),
			stream.RateLimited(1 << 20, 0, nil),
		},
	})
	if err != nil {
		...
	}
	defer s.Close()
	_, err = io.Copy(dst, s)

Package reqflow provides basic interfaces for each method of the client
(Doer, Getter, Header, Poster, FormPoster, and IdleCloser); a combined
interface that composes all the basic methods (Executor); and utility
functions for working with a Doer (Inflate, Get, Head, Post, and
PostForm).
*/
package reqflow
