// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import "fmt"

// ToPWM maps a normalized wheel speed in [-1, 1] onto a 0-255 duty.
// Values outside the range saturate. Direction is folded into the duty.
func ToPWM(speed float64) int {
	return int(Clamp((speed+1)/2*PWM_MAX, 0, PWM_MAX))
}

// ToSpeed is the inverse of ToPWM, for telemetry
func ToSpeed(duty int) float64 {
	return float64(duty)/PWM_MAX*2 - 1
}

// DutyToVelocity converts a duty to the motor controller velocity scale (0-150)
func DutyToVelocity(duty int) int {
	return int(float64(duty) / PWM_MAX * VEL_MAX)
}

// MotorCommand is a duty pair for the left and right wheels
type MotorCommand struct {
	Left  int
	Right int
}

// StopCommand stops both wheels
var StopCommand = MotorCommand{}

func (c MotorCommand) IsStop() bool {
	return c == StopCommand
}

func (c MotorCommand) String() string {
	return fmt.Sprintf("PWM:%d,%d", c.Left, c.Right)
}
