// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJitter(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		assert.PanicsWithValue(t, "reqflow/retry: invalid jitter seed type", func() {
			NewJitter(float64(1))
		})
		assert.PanicsWithValue(t, "reqflow/retry: invalid jitter seed type", func() {
			NewJitter(nil)
		})
		var nilRand *rand.Rand
		assert.PanicsWithValue(t, "reqflow/retry: jitter may not be a typed nil", func() {
			NewJitter(nilRand)
		})
	})
	seeds := []struct {
		name  string
		value interface{}
	}{
		{"time.Time", time.Now()},
		{"int", 1},
		{"int64", int64(2)},
		{"*rand.Rand", rand.New(rand.NewSource(3))},
		{"rand.Source", rand.NewSource(4)},
	}
	for _, seed := range seeds {
		t.Run(seed.name, func(t *testing.T) {
			j := NewJitter(seed.value)
			require.NotNil(t, j)
			for i := 0; i < 100; i++ {
				d := j.Apply(time.Second)
				assert.GreaterOrEqual(t, d, time.Duration(0))
				assert.LessOrEqual(t, d, time.Second)
			}
		})
	}
}

func TestJitter_Apply(t *testing.T) {
	j := NewJitter(42)
	assert.Equal(t, time.Duration(0), j.Apply(0))
	assert.Equal(t, time.Duration(-5), j.Apply(-5))
	d := j.Apply(math.MaxInt64)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	t.Run("same seed same sequence", func(t *testing.T) {
		a, b := NewJitter(7), NewJitter(7)
		for i := 0; i < 10; i++ {
			assert.Equal(t, a.Apply(time.Hour), b.Apply(time.Hour))
		}
	})
	t.Run("reaches both halves", func(t *testing.T) {
		k := NewJitter(99)
		var low, high bool
		for i := 0; i < 1000 && !(low && high); i++ {
			d := k.Apply(time.Second)
			low = low || d < 500*time.Millisecond
			high = high || d >= 500*time.Millisecond
		}
		assert.True(t, low)
		assert.True(t, high)
	})
}
