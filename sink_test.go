// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("port closed")
}

func TestLineSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLineSink(&buf)
	require.NoError(t, SendCommand(s, MotorCommand{Left: 53, Right: 237}))
	require.NoError(t, Stop(s))
	require.NoError(t, Stop(s))
	assert.Equal(t, "PWM:53,237\nPWM:0,0\nPWM:0,0\n", buf.String())
}

func TestVelocitySink(t *testing.T) {
	var buf bytes.Buffer
	s := NewVelocitySink(&buf)
	require.NoError(t, s.Send(255, 128))
	require.NoError(t, Stop(s))
	assert.Equal(t, "VEL:150,75\nVEL:0,0\n", buf.String())
}

func TestSinkWriteError(t *testing.T) {
	assert.Error(t, NewLineSink(failingWriter{}).Send(1, 2))
	assert.Error(t, NewVelocitySink(failingWriter{}).Send(1, 2))
	assert.NoError(t, LogSink{}.Send(1, 2))
}
