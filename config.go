// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// SerialConfig controls the UART shared by the range source and the motor sink
type SerialConfig struct {
	Port     string `yaml:"port" env:"GOUWB_SERIAL"`
	Baud     int    `yaml:"baud" env:"GOUWB_BAUD"`
	Velocity bool   `yaml:"velocity"` // Send VEL lines (motor controller scale) instead of PWM lines
}

// Config aggregates all configuration sections
type Config struct {
	Hz        float64      `yaml:"hz" env:"GOUWB_HZ"`         // Control cycles per second
	NumCycles int          `yaml:"num_cycles"`                // 0 runs until cancelled
	Listen    string       `yaml:"listen" env:"GOUWB_LISTEN"` // HTTP address for metrics and telemetry. Empty disables
	Serial    SerialConfig `yaml:"serial"`

	TagID     string    `yaml:"tag_id"`
	Sensors   int       `yaml:"sensors"`   // Active range sensors
	Anchors   Anchors   `yaml:"anchors"`   // Anchor positions [mm], sensor order
	Reference IndexPair `yaml:"reference"` // Anchors defining the forward axis

	Kalman      KalmanOpt `yaml:"kalman"`
	Window      int       `yaml:"window"`       // Trilateration pre-filter window
	SmoothAngle bool      `yaml:"smooth_angle"` // Moving average on the heading angle
	AngleWindow int       `yaml:"angle_window"`
	Threshold   float64   `yaml:"threshold"` // Correction dead band [deg]

	Trilat TrilatOpt `yaml:"trilat"`
	PID    PIDOpt    `yaml:"pid"`
	Speed  SpeedOpt  `yaml:"speed"`
	Drive  DriveOpt  `yaml:"drive"`
	Sim    SimOpt    `yaml:"sim"`

	StopOnDegenerate bool `yaml:"stop_on_degenerate"` // Stop instead of driving straight when the heading is undefined
	StopOnArrival    bool `yaml:"stop_on_arrival"`    // Stop when the speed profile returns 0
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		Hz:        10,  // 0.1 s per cycle
		NumCycles: 350, // Cycles per run
		Listen:    "",  // No HTTP
		Serial: SerialConfig{
			Port:     "/dev/ttyAMA0",
			Baud:     500000,
			Velocity: false,
		},
		TagID:   "default",
		Sensors: NSENSORS,
		Anchors: Anchors{
			{X: 0, Y: 0, Z: 0},
			{X: 500, Y: 0, Z: 0},
			{X: 0, Y: 500, Z: 0},
			{X: 0, Y: 0, Z: 1000},
		},
		Reference:        IndexPair{0, 1},
		Kalman:           *NewKalmanOpt(),
		Window:           MOVING_AVERAGE_WINDOW,
		SmoothAngle:      true,
		AngleWindow:      MOVING_AVERAGE_WINDOW,
		Threshold:        1.0,
		Trilat:           *NewTrilatOpt(),
		PID:              *NewPIDOpt(),
		Speed:            *NewSpeedOpt(),
		Drive:            *NewDriveOpt(),
		Sim:              *NewSimOpt(),
		StopOnDegenerate: false,
		StopOnArrival:    true,
	}
}

// LoadConfig reads the YAML config over the defaults and applies environment overrides.
// An empty path uses the defaults only.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %q", path)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, errors.Wrapf(err, "parse config %q", path)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays YAML data on cfg. A step table in data replaces the current one.
func (cfg *Config) Decode(data []byte) error {
	steps := cfg.Speed.Steps
	cfg.Speed.Steps = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg.Speed.Steps = steps
		return err
	}
	if cfg.Speed.Steps == nil {
		cfg.Speed.Steps = steps
	}
	return nil
}

// Validate reports every malformed setting as one ErrConfiguration
func (cfg *Config) Validate() error {
	var p []string
	check := func(ok bool, format string, a ...any) {
		if !ok {
			p = append(p, fmt.Sprintf(format, a...))
		}
	}

	check(cfg.Hz > 0, "hz must be > 0")
	check(cfg.NumCycles >= 0, "num_cycles must be >= 0")
	check(len(cfg.Anchors) > 0, "anchors must not be empty")
	check(cfg.Sensors >= 1 && cfg.Sensors <= len(cfg.Anchors), "sensors must be in [1, %d], got %d", len(cfg.Anchors), cfg.Sensors)
	check(!slices.ContainsFunc(cfg.Anchors, func(a PosXYZ) bool { return !a.IsFinite() }), "anchors must be finite")
	for _, i := range cfg.Reference {
		check(i >= 0 && i < cfg.Sensors, "reference index %d outside the %d active anchors", i, cfg.Sensors)
	}
	check(cfg.Reference[0] != cfg.Reference[1], "reference indices must differ")
	check(cfg.TagID != "", "tag_id must be set")

	check(cfg.Kalman.Q >= 0, "kalman.q must be >= 0")
	check(cfg.Kalman.R > 0, "kalman.r must be > 0")
	check(cfg.Window >= 1, "window must be >= 1")
	check(cfg.AngleWindow >= 1, "angle_window must be >= 1")
	check(cfg.Threshold >= 0, "threshold must be >= 0")

	check(cfg.Trilat.MaxIterations > 0, "trilat.max_iterations must be > 0")
	check(cfg.Trilat.MaxLoopCount >= 0, "trilat.max_loop_count must be >= 0")
	check(cfg.Trilat.Threshold > 0, "trilat.threshold must be > 0")
	check(cfg.Trilat.MaxResidual >= 0, "trilat.max_residual must be >= 0")

	check(cfg.PID.Alpha >= 0 && cfg.PID.Alpha <= 1, "pid.alpha must be in [0, 1]")
	check(cfg.PID.MaxOutput >= 0, "pid.max_output must be >= 0")
	check(cfg.PID.OutputMin <= cfg.PID.OutputMax, "pid.output_min must be <= pid.output_max")

	check(cfg.Speed.StopDistance >= 0, "speed.stop_distance must be >= 0")
	check(cfg.Speed.MaxSpeed >= 0, "speed.max_speed must be >= 0")
	for k, v := range cfg.Speed.Steps {
		check(v >= 0 && !math.IsNaN(v), "speed.steps[%d] must be >= 0", k)
	}

	check(cfg.Drive.Sensitivity > 0, "drive.sensitivity must be > 0")
	check(cfg.Drive.MaxDifferential >= 0, "drive.max_differential must be >= 0")
	check(cfg.Drive.FullScale >= 0, "drive.full_scale must be >= 0")

	check(cfg.Sim.Radius >= 0, "sim.radius must be >= 0")
	check(cfg.Sim.Noise >= 0, "sim.noise must be >= 0")
	check(cfg.Sim.Dropout >= 0 && cfg.Sim.Dropout <= 1, "sim.dropout must be in [0, 1]")

	if len(p) > 0 {
		slices.Sort(p)
		return errors.Wrap(ErrConfiguration, strings.Join(p, "; "))
	}
	return nil
}

// Period of one control cycle in seconds
func (cfg *Config) Period() float64 {
	return 1.0 / cfg.Hz
}

// UnmarshalYAML reads a position written as [x, y, z]
func (pos *PosXYZ) UnmarshalYAML(value *yaml.Node) error {
	var v []float64
	if err := value.Decode(&v); err != nil {
		return err
	}
	if len(v) != 3 {
		return fmt.Errorf("line %d: position needs 3 coordinates, got %d", value.Line, len(v))
	}
	pos.X, pos.Y, pos.Z = v[0], v[1], v[2]
	return nil
}

// MarshalYAML writes a position as [x, y, z]
func (pos PosXYZ) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range [...]float64{pos.X, pos.Y, pos.Z} {
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &n)
	}
	return node, nil
}
