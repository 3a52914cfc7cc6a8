// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPipeline(t *testing.T) {
	t.Run("zero value", testPipelineZeroValue)
	t.Run("nil", testPipelineNil)
	t.Run("register", testPipelineRegister)
	t.Run("unregister", testPipelineUnregister)
	t.Run("dispatch", testPipelineDispatch)
	t.Run("concurrent", testPipelineConcurrent)
}

func testPipelineZeroValue(t *testing.T) {
	p := &Pipeline{}
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Names())
	assert.False(t, p.Handles(PreRequest))
	assert.False(t, p.Unregister("x"))
	_, ok := p.Lookup("x")
	assert.False(t, ok)
	assert.NoError(t, p.Dispatch(context.Background(), &Payload{Hook: PreRequest}))
}

func testPipelineNil(t *testing.T) {
	var p *Pipeline
	assert.Equal(t, 0, p.Len())
	assert.False(t, p.Handles(OnError))
	assert.NoError(t, p.Dispatch(context.Background(), &Payload{Hook: OnError}))
}

func testPipelineRegister(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.PanicsWithValue(t, "reqflow: nil registrant", func() {
			_ = (&Pipeline{}).Register(nil)
		})
	})
	t.Run("duplicate name", func(t *testing.T) {
		p := &Pipeline{}
		require.NoError(t, p.Register(nop("a", PreRequest)))
		err := p.Register(nop("a", OnError))
		assert.ErrorIs(t, err, ErrDuplicateName)
		assert.EqualError(t, err, `reqflow: duplicate registrant name: "a"`)
		assert.Equal(t, []string{"a"}, p.Names())
		assert.False(t, p.Handles(OnError))
	})
	t.Run("initializer", func(t *testing.T) {
		p := &Pipeline{}
		settings := map[string]any{"k": "v"}
		r := newMockInitRegistrant(t, "init")
		r.On("Initialize", settings).Return(nil).Once()
		require.NoError(t, p.RegisterWith(r, settings))
		r.AssertExpectations(t)
		got, ok := p.Lookup("init")
		assert.True(t, ok)
		assert.Same(t, r, got)
	})
	t.Run("initializer failure", func(t *testing.T) {
		p := &Pipeline{}
		r := newMockInitRegistrant(t, "init")
		r.On("Initialize", map[string]any(nil)).Return(errors.New("bad settings")).Once()
		err := p.Register(r)
		assert.EqualError(t, err, `reqflow: initialize "init": bad settings`)
		assert.Equal(t, 0, p.Len())
	})
	t.Run("order", func(t *testing.T) {
		p := &Pipeline{}
		require.NoError(t, p.Register(nop("c", PreRequest)))
		require.NoError(t, p.Register(nop("a", PostRequest)))
		require.NoError(t, p.Register(nop("b", PreRequest)))
		assert.Equal(t, []string{"c", "a", "b"}, p.Names())
		assert.Equal(t, 3, p.Len())
		assert.True(t, p.Handles(PreRequest))
		assert.True(t, p.Handles(PostRequest))
		assert.False(t, p.Handles(OnRetry))
	})
}

func testPipelineUnregister(t *testing.T) {
	p := &Pipeline{}
	require.NoError(t, p.Register(nop("a", PreRequest)))
	require.NoError(t, p.Register(nop("b", OnStream)))
	require.NoError(t, p.Register(nop("c", PreRequest)))

	assert.True(t, p.Unregister("b"))
	assert.False(t, p.Unregister("b"))
	assert.Equal(t, []string{"a", "c"}, p.Names())
	assert.False(t, p.Handles(OnStream))
	assert.True(t, p.Handles(PreRequest))
	require.NoError(t, p.Register(nop("b", OnStream)))
	assert.Equal(t, []string{"a", "c", "b"}, p.Names())
}

func testPipelineDispatch(t *testing.T) {
	t.Run("order and shared payload", func(t *testing.T) {
		p := &Pipeline{}
		var calls []string
		var payloads []*Payload
		for _, name := range []string{"first", "second", "third"} {
			name := name
			require.NoError(t, p.Register(NewRegistrant(name, "1", func(_ context.Context, pl *Payload) error {
				calls = append(calls, name)
				payloads = append(payloads, pl)
				return nil
			}, PreResponse)))
		}
		require.NoError(t, p.Register(NewRegistrant("other", "1", func(context.Context, *Payload) error {
			calls = append(calls, "other")
			return nil
		}, PostResponse)))

		pl := &Payload{Hook: PreResponse}
		require.NoError(t, p.Dispatch(context.Background(), pl))

		assert.Equal(t, []string{"first", "second", "third"}, calls)
		for _, x := range payloads {
			assert.Same(t, pl, x)
		}
	})
	t.Run("failure aborts", func(t *testing.T) {
		p := &Pipeline{}
		var calls []string
		require.NoError(t, p.Register(NewRegistrant("ok", "1", func(context.Context, *Payload) error {
			calls = append(calls, "ok")
			return nil
		}, PostRequest)))
		require.NoError(t, p.Register(NewRegistrant("bad", "1", func(context.Context, *Payload) error {
			calls = append(calls, "bad")
			return errors.New("bad thing")
		}, PostRequest)))
		require.NoError(t, p.Register(NewRegistrant("never", "1", func(context.Context, *Payload) error {
			calls = append(calls, "never")
			return nil
		}, PostRequest)))

		err := p.Dispatch(context.Background(), &Payload{Hook: PostRequest})

		var he *HookError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, PostRequest, he.Hook)
		assert.Equal(t, "bad", he.Registrant)
		assert.Equal(t, []string{"ok", "bad"}, calls)
	})
	t.Run("OnError failure logged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		p := &Pipeline{Logger: &logger}
		calls := 0
		require.NoError(t, p.Register(NewRegistrant("bad", "1", func(context.Context, *Payload) error {
			calls++
			return errors.New("cannot report")
		}, OnError)))
		require.NoError(t, p.Register(NewRegistrant("skipped", "1", func(context.Context, *Payload) error {
			calls++
			return nil
		}, OnError)))

		err := p.Dispatch(context.Background(), &Payload{Hook: OnError})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), `"registrant":"bad"`)
		assert.Contains(t, buf.String(), `"hook":"OnError"`)
		assert.Contains(t, buf.String(), `"error":"cannot report"`)
	})
	t.Run("invalid hook", func(t *testing.T) {
		p := &Pipeline{}
		require.NoError(t, p.Register(nop("a", Hooks()...)))
		assert.NoError(t, p.Dispatch(context.Background(), &Payload{Hook: hookSentinel}))
	})
}

func testPipelineConcurrent(t *testing.T) {
	p := &Pipeline{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		name := string(rune('a' + i))
		go func() {
			defer wg.Done()
			_ = p.Register(nop(name, PreRequest))
		}()
		go func() {
			defer wg.Done()
			_ = p.Dispatch(context.Background(), &Payload{Hook: PreRequest})
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, p.Len())
}

func nop(name string, hooks ...Hook) Registrant {
	return NewRegistrant(name, "1.0.0", func(context.Context, *Payload) error { return nil }, hooks...)
}

type mockInitRegistrant struct {
	mock.Mock
	name string
}

func newMockInitRegistrant(t *testing.T, name string) *mockInitRegistrant {
	m := &mockInitRegistrant{name: name}
	m.Test(t)
	return m
}

func (m *mockInitRegistrant) Name() string        { return m.name }
func (m *mockInitRegistrant) Version() string     { return "0.0.1" }
func (m *mockInitRegistrant) Handles(h Hook) bool { return h == PreRequest }

func (m *mockInitRegistrant) Handle(ctx context.Context, p *Payload) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockInitRegistrant) Initialize(settings map[string]any) error {
	return m.Called(settings).Error(0)
}
