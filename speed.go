// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"math"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SpeedOpt contains the distance based speed steps
type SpeedOpt struct {
	StopDistance float64         `yaml:"stop_distance"` // At or below this distance the robot stops [m]
	Steps        map[int]float64 `yaml:"steps"`         // Speed per whole meter of distance
	MaxSpeed     float64         `yaml:"max_speed"`     // Speed for levels missing from Steps
}

// NewSpeedOpt creates a new SpeedOpt with default values
func NewSpeedOpt() *SpeedOpt {
	return &SpeedOpt{
		StopDistance: 1,
		Steps: map[int]float64{
			1: 20.0,  // 1 m to 2 m
			2: 40.0,  // 2 m to 3 m
			3: 60.0,  // 3 m to 4 m
			4: 80.0,  // 4 m to 5 m
			5: 100.0, // 5 m to 6 m
		},
		MaxSpeed: 100.0, // Beyond the last step
	}
}

// SpeedProfile maps a distance to a linear speed with a coarse step function.
//
// The distance is truncated to whole units and looked up in Steps; a level with no
// entry, including any gap below the highest key, gets MaxSpeed. There is no interpolation.
type SpeedProfile struct {
	opt SpeedOpt
}

func NewSpeedProfile(opt SpeedOpt) *SpeedProfile {
	return &SpeedProfile{opt: opt}
}

func (sp *SpeedProfile) Speed(distance float64) float64 {
	return StepSpeed(distance, sp.opt.StopDistance, sp.opt.Steps, sp.opt.MaxSpeed)
}

// Levels returns the table keys in ascending order
func (sp *SpeedProfile) Levels() []int {
	keys := maps.Keys(sp.opt.Steps)
	slices.Sort(keys)
	return keys
}

// StepSpeed is the stateless form of SpeedProfile.Speed
func StepSpeed(distance, stop float64, steps map[int]float64, maxSpeed float64) float64 {
	if distance <= stop {
		return 0.0
	}
	level := int(math.Floor(distance))
	if v, ok := steps[level]; ok {
		return v
	}
	return maxSpeed
}
