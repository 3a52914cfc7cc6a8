// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gogama/reqflow/request"
)

type convenienceKey struct{}

// convenienceCases drive each convenience method of an inflated Doer,
// which builds the plan and hands it to Do with the caller's context.
var convenienceCases = []struct {
	name  string
	call  func(ctx context.Context, x Executor) (*request.Execution, error)
	match func(p *request.Plan) bool
}{
	{
		name: "Get",
		call: func(ctx context.Context, x Executor) (*request.Execution, error) {
			return x.Get(ctx, "http://items.test/1")
		},
		match: func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "http://items.test/1" && p.Body == nil
		},
	},
	{
		name: "Head",
		call: func(ctx context.Context, x Executor) (*request.Execution, error) {
			return x.Head(ctx, "http://items.test/2")
		},
		match: func(p *request.Plan) bool {
			return p.Method == "HEAD" && p.URL.String() == "http://items.test/2"
		},
	},
	{
		name: "Post",
		call: func(ctx context.Context, x Executor) (*request.Execution, error) {
			return x.Post(ctx, "http://items.test/", "text/plain", "eggs")
		},
		match: func(p *request.Plan) bool {
			return p.Method == "POST" && p.URL.String() == "http://items.test/" &&
				p.Header.Get("Content-Type") == "text/plain" &&
				bytes.Equal(p.Body, []byte("eggs"))
		},
	},
	{
		name: "Post nil body",
		call: func(ctx context.Context, x Executor) (*request.Execution, error) {
			return x.Post(ctx, "http://items.test/", "text/plain", nil)
		},
		match: func(p *request.Plan) bool {
			return p.Method == "POST" && p.Body == nil
		},
	},
	{
		name: "PostForm",
		call: func(ctx context.Context, x Executor) (*request.Execution, error) {
			return x.PostForm(ctx, "http://items.test/form", url.Values{"x": []string{"y"}})
		},
		match: func(p *request.Plan) bool {
			return p.Method == "POST" && p.URL.String() == "http://items.test/form" &&
				p.Header.Get("Content-Type") == "application/x-www-form-urlencoded" &&
				bytes.Equal(p.Body, []byte("x=y"))
		},
	},
}

func TestConvenience(t *testing.T) {
	expected := &request.Execution{}
	ctx := context.WithValue(context.Background(), convenienceKey{}, "traced")
	sameCtx := mock.MatchedBy(func(c context.Context) bool { return c.Value(convenienceKey{}) == "traced" })

	for _, testCase := range convenienceCases {
		t.Run(testCase.name, func(t *testing.T) {
			m := newMockDoer(t)
			m.On("Do", sameCtx, mock.MatchedBy(testCase.match)).Return(expected, nil).Once()

			e, err := testCase.call(ctx, Inflate(m))

			require.NoError(t, err)
			assert.Same(t, expected, e)
			m.AssertExpectations(t)
		})
	}
}

func TestConvenience_Errors(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name string
		call func(d Doer) (*request.Execution, error)
		msg  string
	}{
		{
			name: "Get invalid URL",
			call: func(d Doer) (*request.Execution, error) { return Get(ctx, d, ":::") },
		},
		{
			name: "Head invalid URL",
			call: func(d Doer) (*request.Execution, error) { return Head(ctx, d, ":::") },
		},
		{
			name: "Post invalid URL",
			call: func(d Doer) (*request.Execution, error) { return Post(ctx, d, ":::", "text/plain", "abc") },
		},
		{
			name: "Post invalid body",
			call: func(d Doer) (*request.Execution, error) { return Post(ctx, d, "http://items.test/", "text/plain", 123) },
			msg:  "reqflow/request: invalid type (for body use nil, string, []byte, io.Reader or io.ReadCloser)",
		},
		{
			name: "PostForm invalid URL",
			call: func(d Doer) (*request.Execution, error) { return PostForm(ctx, d, ":::", nil) },
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			m := newMockDoer(t)

			e, err := testCase.call(m)

			assert.Nil(t, e)
			require.Error(t, err)
			if testCase.msg != "" {
				assert.EqualError(t, err, testCase.msg)
			}
			m.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
		})
	}
}

func TestInflate(t *testing.T) {
	t.Run("nil doer", func(t *testing.T) {
		assert.PanicsWithValue(t, "reqflow: nil doer", func() {
			Inflate(nil)
		})
	})
	t.Run("already an Executor", func(t *testing.T) {
		cl := &Client{}

		x := Inflate(cl)

		c2, ok := x.(*Client)
		require.True(t, ok)
		assert.Same(t, cl, c2)
	})
	t.Run("bare Doer", func(t *testing.T) {
		m := newMockDoer(t)

		x := Inflate(m)

		_, isDoer := Doer(x).(*mockDoer)
		assert.False(t, isDoer)
		assert.IsType(t, inflated{}, x)
	})
	t.Run("Do", func(t *testing.T) {
		p, err := request.NewPlan("PUT", "http://items.test/widgets/1", "foo")
		require.NoError(t, err)
		expected := &request.Execution{}
		m := newMockDoer(t)
		m.On("Do", mock.Anything, p).Return(expected, nil).Once()

		e, err := Inflate(m).Do(context.Background(), p)

		require.NoError(t, err)
		assert.Same(t, expected, e)
		m.AssertExpectations(t)
	})
	t.Run("CloseIdleConnections", func(t *testing.T) {
		t.Run("not an IdleCloser", func(t *testing.T) {
			m := newMockDoer(t)
			assert.NotPanics(t, Inflate(m).CloseIdleConnections)
		})
		t.Run("IdleCloser", func(t *testing.T) {
			m := newMockDoerWithCloseIdleConnections(t)
			m.On("CloseIdleConnections").Once()

			Inflate(m).CloseIdleConnections()

			m.AssertExpectations(t)
		})
	})
}

type mockDoer struct {
	mock.Mock
}

func newMockDoer(t *testing.T) *mockDoer {
	m := &mockDoer{}
	m.Test(t)
	return m
}

func (m *mockDoer) Do(ctx context.Context, p *request.Plan) (*request.Execution, error) {
	args := m.Called(ctx, p)
	e, _ := args.Get(0).(*request.Execution)
	return e, args.Error(1)
}

type mockDoerWithCloseIdleConnections struct {
	mockDoer
}

func newMockDoerWithCloseIdleConnections(t *testing.T) *mockDoerWithCloseIdleConnections {
	m := &mockDoerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockDoerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}
