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

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosXYZSet(t *testing.T) {
	var p PosXYZ
	require.NoError(t, p.Set("100 150,300"))
	assert.Equal(t, PosXYZ{X: 100, Y: 150, Z: 300}, p)
	assert.Equal(t, "100.000 150.000 300.000", p.String())
	assert.InDelta(t, 350, p.Norm(), 1e-12)
	assert.Equal(t, PosXYZ{X: 100, Y: 150}, p.Horizontal())
	assert.Equal(t, p, FromVec(p.Vec()))

	assert.Error(t, p.Set("1 2"))
	assert.Error(t, p.Set("1 2 z"))
	assert.False(t, PosXYZ{X: math.NaN()}.IsFinite())
	assert.False(t, PosXYZ{Z: math.Inf(-1)}.IsFinite())
}

func TestAnchorsSet(t *testing.T) {
	var a Anchors
	require.NoError(t, a.Set("0 0 0; 500 0 0;0 500 0;"))
	require.Len(t, a, 3)
	assert.Equal(t, PosXYZ{X: 500}, a[1])
	assert.Equal(t, "0.000 0.000 0.000;500.000 0.000 0.000;0.000 500.000 0.000", a.String())
	assert.Equal(t, "1.000 2.000 3.000", Anchors{{X: 1, Y: 2, Z: 3}}.String())

	s, err := a.Slice(2)
	require.NoError(t, err)
	assert.Len(t, s, 2)
	_, err = a.Slice(4)
	assert.Error(t, err)

	assert.Error(t, a.Set("0 0 0;1 1"))
}

func TestIndexPairSet(t *testing.T) {
	var p IndexPair
	require.NoError(t, p.Set("1, 0"))
	assert.Equal(t, IndexPair{1, 0}, p)
	assert.Equal(t, "1,0", p.String())
	assert.Error(t, p.Set("1"))
	assert.Error(t, p.Set("a,b"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -1.0, Clamp(-3, -1, 1))
	assert.Equal(t, 0.5, Clamp(0.5, -1, 1))
	assert.Equal(t, 1.0, Clamp(7, -1, 1))
	assert.InDelta(t, 180, ToDeg(PI), 1e-12)
	assert.InDelta(t, PI/2, ToRad(90), 1e-12)
}

func TestSetDebugLevel(t *testing.T) {
	defer SetDebugLevel(0)
	SetDebugLevel(1)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	SetDebugLevel(3)
	assert.Equal(t, log.TraceLevel, log.GetLevel())
	assert.Equal(t, 3, DBG_)
	SetDebugLevel(0)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
