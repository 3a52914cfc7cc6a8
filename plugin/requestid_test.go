// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plugin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/reqflow"
	"github.com/gogama/reqflow/clock"
	"github.com/gogama/reqflow/request"
)

func TestRequestID(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		r := NewRequestID("")
		e := newExecution(t, "GET", "http://example.com")

		require.NoError(t, r.Handle(context.Background(), &reqflow.Payload{Hook: reqflow.PreRequest, Execution: e}))

		id := e.Request.Header.Get(DefaultRequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})
	t.Run("unique", func(t *testing.T) {
		r := NewRequestID("")
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			e := newExecution(t, "GET", "http://example.com")
			require.NoError(t, r.Handle(context.Background(), &reqflow.Payload{Hook: reqflow.PreRequest, Execution: e}))
			seen[e.Request.Header.Get(DefaultRequestIDHeader)] = true
		}
		assert.Len(t, seen, 100)
	})
	t.Run("existing kept", func(t *testing.T) {
		r := NewRequestID("X-Correlation-ID")
		e := newExecution(t, "GET", "http://example.com")
		e.Request.Header.Set("x-correlation-id", "abc")

		require.NoError(t, r.Handle(context.Background(), &reqflow.Payload{Hook: reqflow.PreRequest, Execution: e}))

		assert.Equal(t, []string{"abc"}, e.Request.Header.Values("X-Correlation-ID"))
		assert.False(t, e.Request.Header.Has(DefaultRequestIDHeader))
	})
	t.Run("stable across attempts", func(t *testing.T) {
		hooks := &reqflow.Pipeline{}
		require.NoError(t, hooks.Register(NewRequestID("")))
		var ids []string
		inner := respond(503, 503, 200)
		cl := &reqflow.Client{
			Transport: transportFunc(func(ctx context.Context, e *request.Execution) (*request.Head, reqflow.Body, error) {
				ids = append(ids, e.Request.Header.Get(DefaultRequestIDHeader))
				return inner.Send(ctx, e)
			}),
			Clock: clock.NewFake(time.Now()),
			Hooks: hooks,
		}

		_, err := cl.Get(context.Background(), "http://example.com")

		require.NoError(t, err)
		require.Len(t, ids, 3)
		assert.NotEmpty(t, ids[0])
		assert.Equal(t, ids[0], ids[1])
		assert.Equal(t, ids[0], ids[2])
	})
	t.Run("name", func(t *testing.T) {
		assert.Equal(t, "request-id", NewRequestID("").Name())
	})
}
