// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "gouwb.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(body), 0o644))
	return fn
}

func TestNewConfigValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, NSENSORS, cfg.Sensors)
	assert.Len(t, cfg.Anchors, 4)
	assert.Equal(t, IndexPair{0, 1}, cfg.Reference)
	assert.InDelta(t, 0.1, cfg.Period(), 1e-12)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	fn := writeConfig(t, `
hz: 20
sensors: 4
anchors:
  - [0, 0, 0]
  - [800, 0, 0]
  - [0, 800, 0]
  - [0, 0, 1200]
reference: [1, 0]
kalman:
  q: 0.05
pid:
  kp: 2.5
speed:
  steps:
    2: 30
trilat:
  warm_start: true
`)
	cfg, err := LoadConfig(fn)
	require.NoError(t, err)

	assert.Equal(t, 20.0, cfg.Hz)
	assert.Equal(t, 4, cfg.Sensors)
	assert.Equal(t, PosXYZ{X: 0, Y: 0, Z: 1200}, cfg.Anchors[3])
	assert.Equal(t, IndexPair{1, 0}, cfg.Reference)
	assert.Equal(t, 0.05, cfg.Kalman.Q)
	assert.Equal(t, NewKalmanOpt().R, cfg.Kalman.R)
	assert.Equal(t, 2.5, cfg.PID.Kp)
	assert.Equal(t, NewPIDOpt().Ki, cfg.PID.Ki)
	assert.True(t, cfg.Trilat.WarmStart)

	// The step table is replaced, not merged
	assert.Equal(t, map[int]float64{2: 30}, cfg.Speed.Steps)
	assert.Equal(t, NewSpeedOpt().MaxSpeed, cfg.Speed.MaxSpeed)
}

func TestLoadConfigEnv(t *testing.T) {
	fn := writeConfig(t, "hz: 20\nserial:\n  port: /dev/ttyUSB0\n")
	t.Setenv("GOUWB_SERIAL", "/dev/ttyS1")
	t.Setenv("GOUWB_BAUD", "115200")
	t.Setenv("GOUWB_LISTEN", ":3000")

	cfg, err := LoadConfig(fn)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, ":3000", cfg.Listen)
	assert.Equal(t, 20.0, cfg.Hz)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "anchors:\n  - [1, 2]\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "window: 0\n"))
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{name: "hz", modify: func(cfg *Config) { cfg.Hz = 0 }},
		{name: "no anchors", modify: func(cfg *Config) { cfg.Anchors = nil }},
		{name: "too many sensors", modify: func(cfg *Config) { cfg.Sensors = 5 }},
		{name: "reference out of range", modify: func(cfg *Config) { cfg.Reference = IndexPair{0, 3} }},
		{name: "same reference", modify: func(cfg *Config) { cfg.Reference = IndexPair{1, 1} }},
		{name: "window", modify: func(cfg *Config) { cfg.Window = 0 }},
		{name: "angle window", modify: func(cfg *Config) { cfg.AngleWindow = 0 }},
		{name: "negative q", modify: func(cfg *Config) { cfg.Kalman.Q = -1 }},
		{name: "zero r", modify: func(cfg *Config) { cfg.Kalman.R = 0 }},
		{name: "alpha", modify: func(cfg *Config) { cfg.PID.Alpha = 1.5 }},
		{name: "output bounds", modify: func(cfg *Config) { cfg.PID.OutputMin = 10; cfg.PID.OutputMax = -10 }},
		{name: "sensitivity", modify: func(cfg *Config) { cfg.Drive.Sensitivity = 0 }},
		{name: "threshold", modify: func(cfg *Config) { cfg.Threshold = -1 }},
		{name: "iterations", modify: func(cfg *Config) { cfg.Trilat.MaxIterations = 0 }},
		{name: "dropout", modify: func(cfg *Config) { cfg.Sim.Dropout = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrConfiguration), "err=%v", err)
		})
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := NewConfig()
	b, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(b), "- [500, 0, 0]")

	got := NewConfig()
	require.NoError(t, got.Decode(b))
	assert.Equal(t, cfg, got)
}
