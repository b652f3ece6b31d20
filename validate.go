// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"math"

	"github.com/pkg/errors"
)

// ValidateRanges checks a raw range vector before it reaches the filters.
// Every one of the n expected ranges must be present, finite and positive.
func ValidateRanges(ranges []float64, n int) error {
	if len(ranges) == 0 {
		return errors.Wrap(ErrInvalidMeasurement, "no ranges")
	}
	if len(ranges) < n {
		return errors.Wrapf(ErrInvalidMeasurement, "%d ranges, expected %d", len(ranges), n)
	}
	for i, r := range ranges[:n] {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return errors.Wrapf(ErrInvalidMeasurement, "range %d = %v", i, r)
		}
	}
	return nil
}

// ShouldCorrect reports whether angle [deg] is outside the dead band.
// An angle equal to the threshold is not corrected.
func ShouldCorrect(angle, threshold float64) bool {
	return math.Abs(angle) > threshold
}
