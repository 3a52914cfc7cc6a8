// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/clock"
	"github.com/gogama/reqflow/failure"
	"github.com/gogama/reqflow/plugin"
	"github.com/gogama/reqflow/retry"
	"github.com/gogama/reqflow/stream"
	"github.com/gogama/reqflow/validate"
)

func environ(vars ...string) Option {
	return WithEnviron(func() []string { return vars })
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(environ())
		require.NoError(t, err)

		assert.Equal(t, Retry{
			MaxAttempts: 4,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
			Multiplier:  2,
			Jitter:      true,
		}, cfg.Retry)
		assert.Equal(t, 8192, cfg.Stream.BufferSize)
		assert.Equal(t, 4096, cfg.Stream.ChunkSize)
		assert.Equal(t, float64(0), cfg.Stream.RateLimitBytesPerSecond)
		assert.Equal(t, 10, cfg.Stream.MaxConcurrentStreams)
		assert.Equal(t, 30*time.Second, cfg.Stream.AttemptTimeout)
		assert.Equal(t, time.Duration(0), cfg.Stream.OverallTimeout)
		assert.Equal(t, plugin.DefaultUserAgent, cfg.Client.UserAgent)
		assert.Equal(t, int64(100<<20), cfg.Client.MaxBodySize)
		assert.Empty(t, cfg.Client.BaseURL)
		assert.False(t, cfg.Client.StrictURLs)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Pretty)
		assert.Equal(t, "reqflow/1.0.0", cfg.String("client.user_agent"))
	})
	t.Run("yaml", func(t *testing.T) {
		cfg, err := Load(environ(), WithYAML([]byte(`
retry:
  max_attempts: 2
  base_delay: 250ms
stream:
  chunk_size: 1024
  rate_limit_bytes_per_second: 2048
client:
  base_url: https://api.example.com/v1/
  default_headers:
    Accept: application/json
`)))
		require.NoError(t, err)

		assert.Equal(t, 2, cfg.Retry.MaxAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
		assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
		assert.Equal(t, 1024, cfg.Stream.ChunkSize)
		assert.Equal(t, float64(2048), cfg.Stream.RateLimitBytesPerSecond)
		assert.Equal(t, "https://api.example.com/v1/", cfg.Client.BaseURL)
		assert.Equal(t, map[string]string{"Accept": "application/json"}, cfg.Client.DefaultHeaders)
	})
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reqflow.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n  pretty: true\n"), 0o600))

		cfg, err := Load(environ(), WithFile(path))
		require.NoError(t, err)

		assert.Equal(t, Log{Level: "debug", Pretty: true}, cfg.Log)
	})
	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(environ(), WithFile(filepath.Join(t.TempDir(), "absent.yaml")))
		require.NoError(t, err)

		assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	})
	t.Run("bad file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reqflow.yaml")
		require.NoError(t, os.WriteFile(path, []byte("retry: [unterminated"), 0o600))

		_, err := Load(environ(), WithFile(path))
		assert.ErrorContains(t, err, "reqflow/config: failed to load "+path)
	})
	t.Run("environment", func(t *testing.T) {
		cfg, err := Load(
			WithYAML([]byte("retry:\n  max_attempts: 2\n")),
			environ(
				"REQFLOW_RETRY__MAX_ATTEMPTS=6",
				"REQFLOW_RETRY__JITTER=false",
				"REQFLOW_STREAM__ATTEMPT_TIMEOUT=5s",
				"REQFLOW_CLIENT__STRICT_URLS=true",
				"REQFLOW_CLIENT__DEFAULT_HEADERS__X-TENANT=acme",
				"OTHER_RETRY__MAX_ATTEMPTS=9",
			),
		)
		require.NoError(t, err)

		assert.Equal(t, 6, cfg.Retry.MaxAttempts)
		assert.False(t, cfg.Retry.Jitter)
		assert.Equal(t, 5*time.Second, cfg.Stream.AttemptTimeout)
		assert.True(t, cfg.Client.StrictURLs)
		assert.Equal(t, map[string]string{"x-tenant": "acme"}, cfg.Client.DefaultHeaders)
	})
	t.Run("invalid", func(t *testing.T) {
		testCases := []struct {
			name string
			yaml string
		}{
			{"zero attempts", "retry:\n  max_attempts: 0\n"},
			{"max below base", "retry:\n  base_delay: 5s\n  max_delay: 1s\n"},
			{"flat multiplier", "retry:\n  multiplier: 1\n"},
			{"negative chunk", "stream:\n  chunk_size: -1\n"},
			{"negative rate", "stream:\n  rate_limit_bytes_per_second: -5\n"},
			{"negative body size", "client:\n  max_body_size: -1\n"},
			{"bad base url", "client:\n  base_url: not a url\n"},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				_, err := Load(environ(), WithYAML([]byte(testCase.yaml)))
				assert.ErrorContains(t, err, "reqflow/config: invalid configuration")
			})
		}
	})
}

func TestConfig_RetryPolicy(t *testing.T) {
	cfg, err := Load(environ("REQFLOW_RETRY__MULTIPLIER=3"))
	require.NoError(t, err)

	assert.Equal(t, retry.Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  3,
		Jitter:      true,
	}, cfg.RetryPolicy())
}

func TestConfig_Stages(t *testing.T) {
	body := []byte("abcdefghijkl")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(environ())
		require.NoError(t, err)

		stages := cfg.Stages(nil)
		require.Len(t, stages, 2)
		a := stream.Chain(stream.FromChunks(body[:5], body[5:]), int64(len(body)), stages...)
		b, err := stream.Collect(context.Background(), a, 0)
		require.NoError(t, err)
		assert.Equal(t, body, b)
	})
	t.Run("none", func(t *testing.T) {
		cfg, err := Load(environ("REQFLOW_STREAM__BUFFER_SIZE=0", "REQFLOW_STREAM__CHUNK_SIZE=0"))
		require.NoError(t, err)

		assert.Empty(t, cfg.Stages(nil))
	})
	t.Run("chunked and rate limited", func(t *testing.T) {
		cfg, err := Load(environ(), WithYAML([]byte(`
stream:
  buffer_size: 0
  chunk_size: 4
  rate_limit_bytes_per_second: 4
  rate_limit_burst: 4
`)))
		require.NoError(t, err)
		clk := clock.NewFake(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))

		a := stream.Chain(stream.FromChunks(body), int64(len(body)), cfg.Stages(clk)...)
		var chunks []string
		for {
			chunk, err := a.Next(context.Background())
			if err != nil {
				break
			}
			chunks = append(chunks, string(chunk))
		}

		assert.Equal(t, []string{"abcd", "efgh", "ijkl"}, chunks)
		assert.Equal(t, []time.Duration{time.Second, time.Second}, clk.Sleeps())
	})
}

func TestConfig_StreamConfig(t *testing.T) {
	cfg, err := Load(environ("REQFLOW_STREAM__CHUNK_TIMEOUT=2s"))
	require.NoError(t, err)

	sc := cfg.StreamConfig(nil)
	assert.Len(t, sc.Stages, 2)
	assert.Equal(t, 2*time.Second, sc.ChunkTimeout)
}

func TestConfig_NewPlan(t *testing.T) {
	t.Run("no base url", func(t *testing.T) {
		cfg, err := Load(environ())
		require.NoError(t, err)

		p, err := cfg.NewPlan("GET", "http://example.com/x", nil)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/x", p.URL.String())
	})
	t.Run("relative", func(t *testing.T) {
		cfg, err := Load(environ("REQFLOW_CLIENT__BASE_URL=https://api.example.com/v1/"))
		require.NoError(t, err)

		p, err := cfg.NewPlan("POST", "items?limit=2", "{}")
		require.NoError(t, err)
		assert.Equal(t, "POST", p.Method)
		assert.Equal(t, "https://api.example.com/v1/items?limit=2", p.URL.String())
		assert.Equal(t, []byte("{}"), p.Body)
	})
	t.Run("absolute", func(t *testing.T) {
		cfg, err := Load(environ("REQFLOW_CLIENT__BASE_URL=https://api.example.com/v1/"))
		require.NoError(t, err)

		p, err := cfg.NewPlan("GET", "https://other.example.com/z", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://other.example.com/z", p.URL.String())
	})
}

func TestLog_Logger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Log{Level: "warn"}.Logger(&buf)

		logger.Info().Msg("hidden")
		logger.Warn().Str("k", "v").Msg("shown")

		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
		assert.Equal(t, "warn", m["level"])
		assert.Equal(t, "shown", m["message"])
		assert.Equal(t, "v", m["k"])
		assert.Contains(t, m, "time")
	})
	t.Run("unknown level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Log{Level: "loud"}.Logger(&buf)

		logger.Debug().Msg("hidden")
		assert.Zero(t, buf.Len())
		logger.Info().Msg("shown")
		assert.Contains(t, buf.String(), `"message":"shown"`)
	})
	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Log{Level: "info", Pretty: true}.Logger(&buf)

		logger.Info().Msg("shown")
		assert.Contains(t, buf.String(), "shown")
		assert.NotContains(t, buf.String(), `"message"`)
	})
}

func TestConfig_NewClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Agent", r.Header.Get("User-Agent"))
		w.Header().Set("X-Seen-Tenant", r.Header.Get("X-Tenant"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()
	transport := &reqflow.HTTPTransport{Doer: server.Client()}

	t.Run("wired", func(t *testing.T) {
		cfg, err := Load(
			WithYAML([]byte("log:\n  level: disabled\n")),
			environ(
				"REQFLOW_CLIENT__USER_AGENT=tester/2",
				"REQFLOW_CLIENT__DEFAULT_HEADERS__X-TENANT=acme",
				"REQFLOW_CLIENT__BASE_URL="+server.URL,
				"REQFLOW_STREAM__OVERALL_TIMEOUT=1m",
			),
		)
		require.NoError(t, err)

		cl, err := cfg.NewClient(transport, plugin.NewRequestID(""))
		require.NoError(t, err)
		assert.Equal(t, cfg.RetryPolicy(), cl.RetryPolicy)
		assert.Equal(t, int64(100<<20), cl.MaxBodySize)
		assert.Equal(t, time.Minute, cl.Timeout)
		assert.Equal(t, 10, cl.MaxConcurrentStreams)
		assert.Equal(t, validate.URL{}, cl.URLValidator)
		assert.Equal(t, []string{"headers", "request-id"}, cl.Hooks.Names())

		p, err := cfg.NewPlan("GET", "/hello", nil)
		require.NoError(t, err)
		e, err := cl.Do(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 200, e.Head.StatusCode)
		assert.Equal(t, "tester/2", e.Head.Header.Get("X-Seen-Agent"))
		assert.Equal(t, "acme", e.Head.Header.Get("X-Seen-Tenant"))
		assert.Equal(t, []byte("ok"), e.Body)
	})
	t.Run("strict urls", func(t *testing.T) {
		cfg, err := Load(environ("REQFLOW_CLIENT__STRICT_URLS=true", "REQFLOW_LOG__LEVEL=disabled"))
		require.NoError(t, err)
		cl, err := cfg.NewClient(transport)
		require.NoError(t, err)

		p, err := cfg.NewPlan("GET", server.URL, nil)
		require.NoError(t, err)
		_, err = cl.Do(context.Background(), p)
		assert.Equal(t, failure.Validation, failure.KindOf(err))
	})
	t.Run("duplicate registrant", func(t *testing.T) {
		cfg, err := Load(environ())
		require.NoError(t, err)

		_, err = cfg.NewClient(transport, plugin.NewHeaders("", nil))
		assert.ErrorIs(t, err, reqflow.ErrDuplicateName)
	})
}
