// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

const (
	PI       = 3.1415926535897932 // Pi
	MM       = 1000.0             // Millimeters per meter
	PWM_MAX  = 255                // Full-scale actuator duty
	VEL_MAX  = 150                // Full-scale motor controller velocity
	NSENSORS = 3                  // Range sensors wired on the UART frame
	NFRAME   = 6                  // Values per UART frame: D1,D2,D3,Vbat,Curr1,Curr2
	CM_TO_MM = 10.0               // UART ranges are reported in centimeters
)
