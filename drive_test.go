// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriveMixer(t *testing.T) {
	dm := NewDriveMixer(DriveOpt{Sensitivity: 30, MaxDifferential: 100})

	tests := []struct {
		name              string
		linear, angle     float64
		left, right, turn float64
	}{
		{name: "straight", linear: 50, angle: 0, left: 50, right: 50, turn: 0},
		{name: "half positive", linear: 50, angle: 15, left: 100, right: 0, turn: 0.5},
		{name: "half negative", linear: 50, angle: -15, left: 0, right: 100, turn: -0.5},
		{name: "clamped", linear: 20, angle: 90, left: 120, right: -80, turn: 1},
		{name: "clamped negative", linear: 20, angle: -45, left: -80, right: 120, turn: -1},
		{name: "spin in place", linear: 0, angle: 30, left: 100, right: -100, turn: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right, turn := dm.Mix(tt.linear, tt.angle)
			assert.InDelta(t, tt.left, left, 1e-12)
			assert.InDelta(t, tt.right, right, 1e-12)
			assert.InDelta(t, tt.turn, turn, 1e-12)
		})
	}
}

func TestDriveMixerAntisymmetric(t *testing.T) {
	dm := NewDriveMixer(*NewDriveOpt())
	for _, a := range []float64{0.5, 7, 29, 31, 170} {
		l1, r1, t1 := dm.Mix(40, a)
		l2, r2, t2 := dm.Mix(40, -a)
		assert.InDelta(t, l1, r2, 1e-9)
		assert.InDelta(t, r1, l2, 1e-9)
		assert.InDelta(t, -t1, t2, 1e-12)
	}
}

func TestDriveMixerNormalize(t *testing.T) {
	dm := NewDriveMixer(DriveOpt{Sensitivity: 30, MaxDifferential: 255})
	l, r := dm.Normalize(355, -355, 100)
	assert.InDelta(t, 1, l, 1e-12)
	assert.InDelta(t, -1, r, 1e-12)

	dm = NewDriveMixer(DriveOpt{Sensitivity: 30, MaxDifferential: 255, FullScale: 50})
	l, r = dm.Normalize(25, 0, 100)
	assert.InDelta(t, 0.5, l, 1e-12)
	assert.Equal(t, 0.0, r)

	dm = NewDriveMixer(DriveOpt{Sensitivity: 30})
	l, r = dm.Normalize(25, 10, 0)
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 0.0, r)
}
