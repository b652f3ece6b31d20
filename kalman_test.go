// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeKalmanFirstUpdate(t *testing.T) {
	kf := NewRangeKalman(KalmanOpt{Q: 0.02, R: 0.2, X0: 0})

	// p = 1.02, k = 1.02/1.22
	k := 1.02 / 1.22
	x := kf.Update(100)
	assert.InDelta(t, k*100, x, 1e-12)
	assert.InDelta(t, 1.02*(1-k), kf.Covariance(), 1e-12)
	assert.Equal(t, x, kf.Estimate())
}

func TestRangeKalmanConverges(t *testing.T) {
	kf := NewRangeKalman(*NewKalmanOpt())
	var x float64
	for _i := 0; _i < 200; _i++ {
		x = kf.Update(350)
	}
	assert.InDelta(t, 350, x, 1e-9)

	// Covariance settles at a positive steady state
	p := kf.Covariance()
	kf.Update(350)
	assert.InDelta(t, p, kf.Covariance(), 1e-9)
	assert.Greater(t, p, 0.0)
}

func TestRangeKalmanMovesTowardMeasurement(t *testing.T) {
	kf := NewRangeKalman(KalmanOpt{Q: 0.01, R: 1, X0: 500})
	x := kf.Update(600)
	assert.Greater(t, x, 500.0)
	assert.Less(t, x, 600.0)
}

func TestRangeKalmanMonotonicApproach(t *testing.T) {
	kf := NewRangeKalman(*NewKalmanOpt())
	prev := kf.Estimate()
	for i := 0; i < 60; i++ {
		x := kf.Update(350)
		assert.Greater(t, x, prev, "step %d", i)
		assert.LessOrEqual(t, x, 350.0, "step %d", i)
		prev = x
	}
}

func TestRangeKalmanZeroProcessNoise(t *testing.T) {
	kf := NewRangeKalman(KalmanOpt{Q: 0, R: 1, X0: 1500})

	// Alternating measurements; the gain decays as 1/(n+1)
	var first, last float64
	for i := 0; i < 1000; i++ {
		z := 1000.0
		if i%2 == 1 {
			z = 2000
		}
		before := kf.Estimate()
		d := math.Abs(kf.Update(z) - before)
		if i == 0 {
			first = d
		}
		last = d
	}
	assert.Greater(t, first, 200.0)
	assert.Less(t, last, 1.0)
	assert.Less(t, kf.Covariance(), 1e-2)
}

func TestKalmanBankIndependentSensors(t *testing.T) {
	b := NewKalmanBank(KalmanOpt{Q: 0.02, R: 0.2, X0: 0})
	assert.Nil(t, b.Get(0))

	out := b.Filter([]float64{100, 200, 300})
	require.Len(t, out, 3)
	assert.InDelta(t, 2*out[0], out[1], 1e-9)
	assert.InDelta(t, 3*out[0], out[2], 1e-9)

	// Updating one sensor leaves the others untouched
	before := b.Get(1).Estimate()
	b.Update(0, 1000)
	assert.Equal(t, before, b.Get(1).Estimate())
	assert.NotNil(t, b.Get(2))
	assert.Nil(t, b.Get(3))
}
