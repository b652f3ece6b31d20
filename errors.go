// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import "github.com/pkg/errors"

// Error kinds returned by the pipeline. Classify with errors.Is.
var (
	// A range is missing, non-positive or not a number. The cycle is skipped and the motors stopped.
	ErrInvalidMeasurement = errors.New("invalid measurement")

	// Trilateration did not converge. The motors are stopped.
	ErrConvergence = errors.New("trilateration did not converge")

	// Fewer than 3 usable anchors, or all anchors on one line.
	ErrInsufficientGeometry = errors.Wrap(ErrConvergence, "insufficient anchor geometry")

	// Zero-length forward or target vector in the heading calculation. Steering is skipped for the cycle.
	ErrDegenerateGeometry = errors.New("degenerate heading geometry")

	// Malformed configuration. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")
)
