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
	"gonum.org/v1/gonum/spatial/r3"
)

// Planar vectors shorter than this have no direction [mm]
const MIN_PLANAR_NORM = 1e-9

// HeadingAngle returns the signed angle [deg] between the robot's forward axis and the tag.
//
// The forward axis runs from anchor a to anchor b, the reference point is their midpoint.
// Both vectors are projected onto the horizontal plane. The sign is that of the Z component
// of cross(forward, target), so a counterclockwise target seen from above is positive.
// The result is in (-180, 180].
func HeadingAngle(pos, a, b PosXYZ) (float64, error) {
	center := r3.Scale(0.5, r3.Add(a.Vec(), b.Vec()))

	forward := b.Horizontal().Vec()
	forward = r3.Sub(forward, a.Horizontal().Vec())
	if r3.Norm(forward) < MIN_PLANAR_NORM {
		return 0, errors.Wrapf(ErrDegenerateGeometry, "reference anchors %s and %s coincide on the plane", a, b)
	}

	target := r3.Sub(pos.Vec(), center)
	target.Z = 0
	if r3.Norm(target) < MIN_PLANAR_NORM {
		return 0, errors.Wrapf(ErrDegenerateGeometry, "tag %s is above the reference point", pos)
	}

	forward = r3.Unit(forward)
	target = r3.Unit(target)
	cross := r3.Cross(forward, target)
	dot := r3.Dot(forward, target)

	angle := ToDeg(math.Atan2(cross.Z, dot))
	if angle <= -180 {
		angle += 360
	}
	return angle, nil
}
