// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	v, err := ParseFrame([]byte(" [35, 52.2,47.1,12.1,0.5,0.6]\r\n"))
	require.NoError(t, err)
	assert.Equal(t, [NFRAME]float64{35, 52.2, 47.1, 12.1, 0.5, 0.6}, v)

	for _, s := range []string{
		"35,52,47,12,0.5,0.6",
		"[35,52,47,12,0.5]",
		"[35,52,47,12,0.5,0.6,1]",
		"[35,x,47,12,0.5,0.6]",
		"[]",
	} {
		_, err := ParseFrame([]byte(s))
		assert.Error(t, err, s)
	}
}

func TestFrameReader(t *testing.T) {
	fr := NewFrameReader()
	_, err := fr.ReadRanges()
	assert.True(t, errors.Is(err, ErrInvalidMeasurement))

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- fr.Listen(pr)
	}()
	waitSeq := func(n uint64) {
		require.Eventually(t, func() bool { return fr.Seq() == n }, time.Second, time.Millisecond)
	}

	// Garbage before the frame is skipped
	_, err = pw.Write([]byte("boot\n[35,52.2,47.1,12.1,0.5,0.6]\n"))
	require.NoError(t, err)
	waitSeq(1)

	ranges, err := fr.ReadRanges()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{350, 522, 471}, ranges, 1e-9)

	pw0, ok := fr.Power()
	assert.True(t, ok)
	assert.Equal(t, PowerStatus{Vbat: 12.1, Curr1: 0.5, Curr2: 0.6}, pw0)

	// Malformed frames leave the last frame in place
	_, err = pw.Write([]byte("[1,2]\n[36,53,48,12.0,0.4,0.5]"))
	require.NoError(t, err)
	waitSeq(2)
	ranges, err = fr.ReadRanges()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{360, 530, 480}, ranges, 1e-9)

	// Same frame again until a new one arrives
	again, err := fr.ReadRanges()
	require.NoError(t, err)
	assert.Equal(t, ranges, again)

	// A closed stream invalidates every read
	require.NoError(t, pw.Close())
	assert.ErrorIs(t, <-done, io.EOF)
	_, err = fr.ReadRanges()
	assert.True(t, errors.Is(err, ErrInvalidMeasurement))
}
