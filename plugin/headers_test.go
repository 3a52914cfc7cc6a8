// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/request"
)

func TestHeaders(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h := NewHeaders("", map[string]string{"Accept": "application/json"})
		e := newExecution(t, "GET", "http://example.com")

		require.NoError(t, h.Handle(context.Background(), &reqflow.Payload{Hook: reqflow.PreRequest, Execution: e}))

		assert.Equal(t, "application/json", e.Request.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, e.Request.Header.Get("User-Agent"))
		assert.Equal(t, "reqflow/1.0.0", DefaultUserAgent)
		assert.False(t, e.Plan.Header.Has("Accept"))
	})
	t.Run("existing fields win", func(t *testing.T) {
		h := NewHeaders("agent/2", map[string]string{"accept": "application/json"})
		e := newExecution(t, "GET", "http://example.com")
		e.Request.Header.Set("Accept", "text/html")
		e.Request.Header.Set("user-agent", "mine/1")

		require.NoError(t, h.Handle(context.Background(), &reqflow.Payload{Hook: reqflow.PreRequest, Execution: e}))

		assert.Equal(t, []string{"text/html"}, e.Request.Header.Values("Accept"))
		assert.Equal(t, []string{"mine/1"}, e.Request.Header.Values("User-Agent"))
	})
	t.Run("multiple values", func(t *testing.T) {
		h := NewHeaders("agent/2", nil).
			Add("Accept-Language", "en").
			Add("accept-language", "fr").
			Add("X-Present", "default")
		e := newExecution(t, "GET", "http://example.com")
		e.Request.Header.Set("X-Present", "request")

		require.NoError(t, h.Handle(context.Background(), &reqflow.Payload{Hook: reqflow.PreRequest, Execution: e}))

		assert.Equal(t, []string{"en", "fr"}, e.Request.Header.Values("Accept-Language"))
		assert.Equal(t, []string{"request"}, e.Request.Header.Values("X-Present"))
		assert.Equal(t, "agent/2", e.Request.Header.Get("User-Agent"))
	})
	t.Run("client", func(t *testing.T) {
		hooks := &reqflow.Pipeline{}
		require.NoError(t, hooks.Register(NewHeaders("agent/3", map[string]string{"X-Tenant": "acme"})))
		var sent request.Header
		inner := respond(200)
		cl := &reqflow.Client{
			Transport: transportFunc(func(ctx context.Context, e *request.Execution) (*request.Head, reqflow.Body, error) {
				sent = e.Request.Header.Clone()
				return inner.Send(ctx, e)
			}),
			Hooks: hooks,
		}

		_, err := cl.Get(context.Background(), "http://example.com")

		require.NoError(t, err)
		assert.Equal(t, "acme", sent.Get("X-Tenant"))
		assert.Equal(t, "agent/3", sent.Get("User-Agent"))
	})
	t.Run("name", func(t *testing.T) {
		h := NewHeaders("", nil)
		assert.Equal(t, "headers", h.Name())
		assert.True(t, h.Handles(reqflow.PreRequest))
	})
}
