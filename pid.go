// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import "math"

// PIDOpt contains the steering controller gains and limits
type PIDOpt struct {
	Kp        float64 `yaml:"kp"`
	Ki        float64 `yaml:"ki"`
	Kd        float64 `yaml:"kd"`
	Setpoint  float64 `yaml:"setpoint"`   // Target heading [deg]
	Alpha     float64 `yaml:"alpha"`      // Error smoothing factor in [0,1]. 1 disables smoothing
	MaxOutput float64 `yaml:"max_output"` // Symmetric output limit. 0 means no limit
	OutputMin float64 `yaml:"output_min"` // Clip applied by the pipeline after Update
	OutputMax float64 `yaml:"output_max"`
}

// NewPIDOpt creates a new PIDOpt with default values
func NewPIDOpt() *PIDOpt {
	return &PIDOpt{
		Kp:        1.2,   // Proportional gain
		Ki:        0.2,   // Integral gain
		Kd:        0.1,   // Derivative gain
		Setpoint:  0.0,   // Keep the tag straight ahead
		Alpha:     0.3,   // Exponential smoothing of the error
		MaxOutput: 30.0,  // Saturation
		OutputMin: -30.0, // Turn correction limits
		OutputMax: 30.0,
	}
}

// PIDState is the controller memory carried between cycles
type PIDState struct {
	PrevError float64 // Previous filtered error
	Integral  float64 // Sum of filtered errors
}

// PIDController is a discrete PID law on an exponentially smoothed error.
// The integral is never reset; callers limit windup by gating updates.
type PIDController struct {
	opt   PIDOpt
	state PIDState
}

func NewPIDController(opt PIDOpt) *PIDController {
	return &PIDController{opt: opt}
}

// Update computes the correction for the measured value
func (pid *PIDController) Update(measured float64) float64 {
	e := pid.opt.Setpoint - measured

	// Exponential filter of the error
	ef := pid.opt.Alpha*e + (1-pid.opt.Alpha)*pid.state.PrevError

	pid.state.Integral += ef
	derivative := ef - pid.state.PrevError
	pid.state.PrevError = ef

	out := pid.opt.Kp*ef + pid.opt.Ki*pid.state.Integral + pid.opt.Kd*derivative

	// Saturation
	if pid.opt.MaxOutput > 0 {
		out = math.Max(math.Min(out, pid.opt.MaxOutput), -pid.opt.MaxOutput)
	}
	return out
}

func (pid *PIDController) State() PIDState {
	return pid.state
}

func (pid *PIDController) Opt() PIDOpt {
	return pid.opt
}
