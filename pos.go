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
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

//-------------------------------------------------------------------
// PosXYZ
//-------------------------------------------------------------------

// PosXYZ is a point in the anchor frame [mm]. Z is up.
type PosXYZ struct {
	X float64
	Y float64
	Z float64
}

func FromVec(v r3.Vec) PosXYZ {
	return PosXYZ{X: v.X, Y: v.Y, Z: v.Z}
}

func (pos PosXYZ) Vec() r3.Vec {
	return r3.Vec{X: pos.X, Y: pos.Y, Z: pos.Z}
}

// Distance from the frame origin
func (pos PosXYZ) Norm() float64 {
	return math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
}

// Projection onto the horizontal plane (Z zeroed)
func (pos PosXYZ) Horizontal() PosXYZ {
	return PosXYZ{X: pos.X, Y: pos.Y}
}

func (pos PosXYZ) IsFinite() bool {
	for _, v := range [...]float64{pos.X, pos.Y, pos.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Read from string "x y z"
func (pos *PosXYZ) Set(s string) error {
	f := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(f) != 3 {
		return fmt.Errorf("expected 3 coordinates, got %d in %q", len(f), s)
	}
	var v [3]float64
	for i := 0; i < 3; i++ {
		x, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return err
		}
		v[i] = x
	}
	pos.X, pos.Y, pos.Z = v[0], v[1], v[2]
	return nil
}

// Convert to string
func (pos PosXYZ) String() string {
	return fmt.Sprintf("%.3f %.3f %.3f", pos.X, pos.Y, pos.Z)
}

//-------------------------------------------------------------------
// Anchors
//-------------------------------------------------------------------

// Anchors is the ordered anchor set. Index order matches the range sensor order.
type Anchors []PosXYZ

// Read from string "x y z;x y z;..."
func (p *Anchors) Set(s string) error {
	*p = Anchors{}
	for _, a := range strings.Split(s, ";") {
		if strings.TrimSpace(a) == "" {
			continue
		}
		var pos PosXYZ
		if err := pos.Set(a); err != nil {
			return err
		}
		*p = append(*p, pos)
	}
	return nil
}

func (p Anchors) String() string {
	s := make([]string, 0, len(p))
	for _, a := range p {
		s = append(s, a.String())
	}
	return strings.Join(s, ";")
}

// Slice returns the first n anchors, matching the active sensor count
func (p Anchors) Slice(n int) (Anchors, error) {
	if n > len(p) {
		return nil, fmt.Errorf("%d ranges but only %d anchors", n, len(p))
	}
	return p[:n], nil
}
