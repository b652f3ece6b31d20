// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

// DriveOpt contains the differential drive parameters
type DriveOpt struct {
	Sensitivity     float64 `yaml:"sensitivity"`      // Angle giving a full turn [deg]
	MaxDifferential float64 `yaml:"max_differential"` // Wheel speed offset of a full turn
	FullScale       float64 `yaml:"full_scale"`       // Wheel speed mapped to 1.0. 0 means MaxSpeed + MaxDifferential
}

// NewDriveOpt creates a new DriveOpt with default values
func NewDriveOpt() *DriveOpt {
	return &DriveOpt{
		Sensitivity:     30.0, // Largest angle considered for curvature
		MaxDifferential: 255,  // Largest per-wheel offset
		FullScale:       0,    // Derived from the speed profile
	}
}

// DriveMixer turns a linear speed and a steering angle into wheel speeds
type DriveMixer struct {
	opt DriveOpt
}

func NewDriveMixer(opt DriveOpt) *DriveMixer {
	return &DriveMixer{opt: opt}
}

// Mix returns the left and right wheel speeds and the normalized turn in [-1, 1].
// A positive angle speeds up the left wheel and slows the right one.
// The wheel speeds are not clamped.
func (dm *DriveMixer) Mix(linear, angle float64) (left, right, turn float64) {
	turn = Clamp(angle/dm.opt.Sensitivity, -1, 1)
	left = linear + turn*dm.opt.MaxDifferential
	right = linear - turn*dm.opt.MaxDifferential
	return
}

// Normalize scales wheel speeds by the full scale so that they can be mapped to duty
func (dm *DriveMixer) Normalize(left, right, maxSpeed float64) (float64, float64) {
	fs := dm.opt.FullScale
	if fs <= 0 {
		fs = maxSpeed + dm.opt.MaxDifferential
	}
	if fs <= 0 {
		return 0, 0
	}
	return left / fs, right / fs
}
