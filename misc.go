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
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

func EucDist(a, b *PosXYZ) float64 {
	return math.Sqrt(SQ(a.X-b.X) + SQ(a.Y-b.Y) + SQ(a.Z-b.Z))
}

// Partial derivatives of |a-b| with respect to a
func DistDx(a, b *PosXYZ) float64 {
	return (a.X - b.X) / EucDist(a, b)
}

func DistDy(a, b *PosXYZ) float64 {
	return (a.Y - b.Y) / EucDist(a, b)
}

func DistDz(a, b *PosXYZ) float64 {
	return (a.Z - b.Z) / EucDist(a, b)
}

func ToDeg(rad float64) float64 {
	return rad / PI * 180.0
}

func ToRad(deg float64) float64 {
	return deg / 180.0 * PI
}

// Clamp keeps x inside [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ------------------------------------
// Debug print function
// ------------------------------------

func PrintMat(X mat.Matrix) {
	r, c := X.Dims()
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	log.Tracef("(%d x %d)\n%v", r, c, fa)
}

func PrintA(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

// Debug display level
var DBG_ int

// SetDebugLevel sets DBG_ and the logrus level to match.
// 0: info, 1: debug, 2 or more: trace
func SetDebugLevel(v int) {
	DBG_ = v
	switch {
	case v >= 2:
		log.SetLevel(log.TraceLevel)
	case v == 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// Debug display
func PrintD(v int, format string, a ...any) {
	if DBG_ < v {
		return
	}
	if v >= 2 {
		log.Tracef(format, a...)
	} else {
		log.Debugf(format, a...)
	}
}

func PrintE(err error) {
	fmt.Fprintf(os.Stderr, "err=%s\n", err.Error())
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

// IndexPair holds the two anchor indices defining the robot's forward axis
type IndexPair [2]int

func (p *IndexPair) Set(s string) error {
	f := strings.Split(s, ",")
	if len(f) != 2 {
		return fmt.Errorf("expected two comma-separated indices, got %q", s)
	}
	for i := 0; i < 2; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(f[i]))
		if err != nil {
			return err
		}
		p[i] = v
	}
	return nil
}

func (p *IndexPair) String() string {
	return fmt.Sprintf("%d,%d", p[0], p[1])
}
