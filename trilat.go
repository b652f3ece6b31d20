// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

// Implements 3D trilateration of a tag from ranges to fixed anchors.

package gouwb

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Calculation constants for trilateration
const (
	MAX_LBFGS_ITERATIONS  = 200   // Iteration cap of the quasi-Newton stage
	MAX_LOOP_COUNT        = 10    // Iteration cap of the Gauss-Newton stage
	CONVERGENCE_THRESHOLD = 1e-6  // Gauss-Newton convergence threshold [mm]
	GRADIENT_THRESHOLD    = 1e-9  // Quasi-Newton gradient threshold
	MIN_ANCHOR_DISTANCE   = 1e-9  // Below this a point is on top of an anchor [mm]
	GEOMETRY_RANK_TOL     = 1e-6  // Relative singular value tolerance of the anchor geometry
	COST_TOLERANCE        = 1e-9  // Refinement may not increase the cost by more than this
	MIN_ANCHORS           = 3     // Minimum number of non-collinear anchors
	MAX_RESIDUAL_DEFAULT  = 0.0   // 0 means no residual check
	FUNCTION_CONVERGE_ABS = 1e-12 // Absolute cost change regarded as converged
)

// TrilatOpt contains options for trilateration
type TrilatOpt struct {
	MaxIterations int     `yaml:"max_iterations"` // Quasi-Newton iteration cap
	MaxLoopCount  int     `yaml:"max_loop_count"` // Gauss-Newton iteration cap. 0 disables refinement
	Threshold     float64 `yaml:"threshold"`      // Gauss-Newton convergence threshold [mm]
	WarmStart     bool    `yaml:"warm_start"`     // Seed with the tag's previous estimate instead of the origin
	MaxResidual   float64 `yaml:"max_residual"`   // Reject solutions with a larger mean residual [mm]. 0 disables
}

// NewTrilatOpt creates a new TrilatOpt with default values
func NewTrilatOpt() *TrilatOpt {
	return &TrilatOpt{
		MaxIterations: MAX_LBFGS_ITERATIONS,  // Quasi-Newton iteration cap
		MaxLoopCount:  MAX_LOOP_COUNT,        // Gauss-Newton iteration cap
		Threshold:     CONVERGENCE_THRESHOLD, // 1e-6 mm
		WarmStart:     false,                 // Seed at the origin
		MaxResidual:   MAX_RESIDUAL_DEFAULT,  // No residual check
	}
}

// TrilatSol contains the results of trilateration
type TrilatSol struct {
	Pos      PosXYZ             // Estimated tag position [mm]
	Residual float64            // Mean absolute range residual [mm]
	Res      []float64          // Range residual per anchor (measured - fitted) [mm]
	Ranges   []float64          // Ranges used in the fit [mm]
	Cost     float64            // Sum of squared residuals [mm^2]
	Iter     int                // Quasi-Newton major iterations
	Loops    int                // Gauss-Newton iterations
	Refined  bool               // Whether the Gauss-Newton stage converged
	Cov      [3][3]float64      // (G^T G)^-1 at the solution
	Dop      map[string]float64 // Dilution of precision values: 'pdop', 'hdop', 'vdop'
}

// NewTrilatSol creates a new empty TrilatSol
func NewTrilatSol() *TrilatSol {
	return &TrilatSol{
		Pos: PosXYZ{},
		Res: []float64{},
		Dop: map[string]float64{
			"pdop": 0,
			"hdop": 0,
			"vdop": 0,
		},
	}
}

// Trilaterate finds the point minimizing sum((|P - a_i| - r_i)^2)
//
// Parameters:
//   - ranges: Filtered ranges, one per anchor [mm]
//   - anchors: Anchor positions [mm]
//   - seed: Initial point of the search
//   - opt: Calculation options
//
// Returns:
//   - TrilatSol: Position, residual and diagnostics
//   - error: ErrInsufficientGeometry or ErrConvergence
func Trilaterate(ranges []float64, anchors Anchors, seed PosXYZ, opt *TrilatOpt) (*TrilatSol, error) {

	if len(ranges) != len(anchors) {
		return nil, errors.Wrapf(ErrInvalidMeasurement, "%d ranges for %d anchors", len(ranges), len(anchors))
	}

	// Check that the anchors can fix a position at all
	err := checkGeometry(anchors)
	if err != nil {
		return nil, err
	}

	// No gradient crosses the plane of coplanar anchors
	seed = liftSeed(seed, anchors, ranges)

	rslt := NewTrilatSol()
	rslt.Ranges = append([]float64(nil), ranges...)

	// Global search (quasi-Newton)
	pos, iter, lerr := minimizeLBFGS(ranges, anchors, seed, opt)
	rslt.Iter = iter
	if lerr != nil {
		PrintD(1, "\ttrilat: lbfgs failed after %d iterations, err=%v", iter, lerr)
	}

	// Local refinement (Gauss-Newton)
	if opt.MaxLoopCount > 0 {
		start := pos
		if lerr != nil && !pos.IsFinite() {
			start = seed
		}
		gpos, loops, gerr := refineGaussNewton(ranges, anchors, start, opt)
		rslt.Loops = loops
		switch {
		case gerr != nil:
			PrintD(2, "\ttrilat: gauss-newton skipped, err=%v", gerr)
		case lerr == nil && cost(ranges, anchors, gpos) > cost(ranges, anchors, pos)+COST_TOLERANCE:
			PrintD(2, "\ttrilat: gauss-newton increased the cost, kept lbfgs solution")
		default:
			pos = gpos
			rslt.Refined = true
			lerr = nil
		}
	}

	if lerr != nil {
		return nil, errors.Wrapf(ErrConvergence, "%v (iterations=%d)", lerr, iter)
	}
	if !pos.IsFinite() {
		return nil, errors.Wrapf(ErrConvergence, "non-finite solution %v", pos)
	}

	// Residuals
	rslt.Pos = pos
	rslt.Res = make([]float64, len(anchors))
	abs := make([]float64, len(anchors))
	for i := range anchors {
		rslt.Res[i] = ranges[i] - EucDist(&pos, &anchors[i])
		abs[i] = math.Abs(rslt.Res[i])
	}
	rslt.Residual = stat.Mean(abs, nil)
	rslt.Cost = cost(ranges, anchors, pos)

	// Dilution of precision
	setDop(rslt, anchors)

	if opt.MaxResidual > 0 && rslt.Residual > opt.MaxResidual {
		return nil, errors.Wrapf(ErrConvergence, "residual %.3f mm > %.3f mm", rslt.Residual, opt.MaxResidual)
	}

	PrintD(1, "\ttrilat: pos=%s residual=%.6f iter=%d loops=%d refined=%t", rslt.Pos, rslt.Residual, rslt.Iter, rslt.Loops, rslt.Refined)
	return rslt, nil
}

// checkGeometry requires at least 3 anchors that are not on one line
func checkGeometry(anchors Anchors) error {
	if len(anchors) < MIN_ANCHORS {
		return errors.Wrapf(ErrInsufficientGeometry, "%d anchors < %d", len(anchors), MIN_ANCHORS)
	}

	// Differences to the first anchor span at least a plane
	D, scale := anchorDifferences(anchors)
	if scale < MIN_ANCHOR_DISTANCE {
		return errors.Wrap(ErrInsufficientGeometry, "all anchors coincide")
	}
	rank := matrixRank(D, GEOMETRY_RANK_TOL*scale)
	if rank < 2 {
		return errors.Wrapf(ErrInsufficientGeometry, "anchors are collinear (rank=%d)", rank)
	}
	return nil
}

// anchorDifferences returns the rows a_i - a_0 and the largest of their lengths
func anchorDifferences(anchors Anchors) (*mat.Dense, float64) {
	D := mat.NewDense(len(anchors)-1, 3, nil)
	scale := 0.0
	for i := 1; i < len(anchors); i++ {
		D.Set(i-1, 0, anchors[i].X-anchors[0].X)
		D.Set(i-1, 1, anchors[i].Y-anchors[0].Y)
		D.Set(i-1, 2, anchors[i].Z-anchors[0].Z)
		scale = math.Max(scale, EucDist(&anchors[i], &anchors[0]))
	}
	return D, scale
}

// anchorNormal returns the unit normal of the anchor plane if all anchors lie on one.
// The normal points up, or toward +Y then +X for a vertical plane.
func anchorNormal(anchors Anchors) (r3.Vec, bool) {
	D, _ := anchorDifferences(anchors)
	var svd mat.SVD
	if !svd.Factorize(D, mat.SVDFullV) {
		return r3.Vec{}, false
	}
	s := svd.Values(nil)
	if len(s) > 2 && s[2] > GEOMETRY_RANK_TOL*s[0] {
		return r3.Vec{}, false
	}

	// Right singular vector of the smallest singular value
	var V mat.Dense
	svd.VTo(&V)
	n := r3.Vec{X: V.At(0, 2), Y: V.At(1, 2), Z: V.At(2, 2)}
	switch {
	case math.Abs(n.Z) > MIN_PLANAR_NORM:
		if n.Z < 0 {
			n = r3.Scale(-1, n)
		}
	case math.Abs(n.Y) > MIN_PLANAR_NORM:
		if n.Y < 0 {
			n = r3.Scale(-1, n)
		}
	case n.X < 0:
		n = r3.Scale(-1, n)
	}
	return r3.Unit(n), true
}

// liftSeed moves a seed lying on the plane of coplanar anchors off that plane.
// The new seed is the mean range away along the anchor normal, so the search
// settles on the upper of the two mirror solutions.
func liftSeed(seed PosXYZ, anchors Anchors, ranges []float64) PosXYZ {
	n, ok := anchorNormal(anchors)
	if !ok {
		return seed
	}
	if math.Abs(r3.Dot(r3.Sub(seed.Vec(), anchors[0].Vec()), n)) > MIN_ANCHOR_DISTANCE {
		return seed
	}
	lifted := FromVec(r3.Add(seed.Vec(), r3.Scale(stat.Mean(ranges, nil), n)))
	PrintD(2, "\ttrilat: seed %s on the anchor plane, lifted to %s", seed, lifted)
	return lifted
}

// cost is the sum of squared range residuals at p
func cost(ranges []float64, anchors Anchors, p PosXYZ) float64 {
	f := 0.0
	for i := range anchors {
		f += SQ(EucDist(&p, &anchors[i]) - ranges[i])
	}
	return f
}

// minimizeLBFGS runs the bounded quasi-Newton search
func minimizeLBFGS(ranges []float64, anchors Anchors, seed PosXYZ, opt *TrilatOpt) (PosXYZ, int, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return cost(ranges, anchors, PosXYZ{X: x[0], Y: x[1], Z: x[2]})
		},
		Grad: func(grad, x []float64) {
			p := PosXYZ{X: x[0], Y: x[1], Z: x[2]}
			grad[0], grad[1], grad[2] = 0, 0, 0
			for i := range anchors {
				d := EucDist(&p, &anchors[i])
				if d < MIN_ANCHOR_DISTANCE {
					continue // |P - a| is not differentiable on the anchor
				}
				g := 2 * (d - ranges[i]) / d
				grad[0] += g * (p.X - anchors[i].X)
				grad[1] += g * (p.Y - anchors[i].Y)
				grad[2] += g * (p.Z - anchors[i].Z)
			}
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   opt.MaxIterations,
		GradientThreshold: GRADIENT_THRESHOLD,
		Converger: &optimize.FunctionConverge{
			Absolute:   FUNCTION_CONVERGE_ABS,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, []float64{seed.X, seed.Y, seed.Z}, settings, &optimize.LBFGS{})
	if result == nil {
		return seed, 0, err
	}
	pos := PosXYZ{X: result.X[0], Y: result.X[1], Z: result.X[2]}
	if err == nil {
		err = result.Status.Err()
	}
	if err != nil {
		return pos, result.MajorIterations, err
	}
	PrintD(2, "\ttrilat: lbfgs status=%v iter=%d f=%g", result.Status, result.MajorIterations, result.F)
	return pos, result.MajorIterations, nil
}

// designMatrix returns the unit line-of-sight rows G and the range residuals dr at p
func designMatrix(ranges []float64, anchors Anchors, p PosXYZ) (*mat.Dense, *mat.VecDense, error) {
	n := len(anchors)
	G := mat.NewDense(n, 3, nil)
	dr := mat.NewVecDense(n, nil)
	for i := range anchors {
		ri := EucDist(&p, &anchors[i])
		if ri < MIN_ANCHOR_DISTANCE {
			return nil, nil, fmt.Errorf("position on anchor %d", i)
		}
		G.Set(i, 0, DistDx(&p, &anchors[i]))
		G.Set(i, 1, DistDy(&p, &anchors[i]))
		G.Set(i, 2, DistDz(&p, &anchors[i]))
		dr.SetVec(i, ranges[i]-ri)
	}
	return G, dr, nil
}

// refineGaussNewton polishes p with linearized least squares
func refineGaussNewton(ranges []float64, anchors Anchors, p PosXYZ, opt *TrilatOpt) (PosXYZ, int, error) {
	for loop := 0; loop < opt.MaxLoopCount; loop++ {
		G, dr, err := designMatrix(ranges, anchors, p)
		if err != nil {
			return p, loop, err
		}
		if DBG_ >= 3 {
			PrintMat(G)
		}

		dx, _, err := SolveLS(G, dr, nil)
		if err != nil {
			return p, loop, err
		}

		p.X += dx.AtVec(0)
		p.Y += dx.AtVec(1)
		p.Z += dx.AtVec(2)
		PrintD(2, "\tLOOP %d: XYZ= %.6f %.6f %.6f", loop+1, p.X, p.Y, p.Z)

		// Check convergence
		if isConverged(dx, opt.Threshold) {
			return p, loop + 1, nil
		}
	}
	return p, opt.MaxLoopCount, fmt.Errorf("number of loop reached max")
}

// isConverged checks if every component of the update is below threshold
func isConverged(dx mat.Vector, threshold float64) bool {
	return math.Abs(dx.AtVec(0)) < threshold &&
		math.Abs(dx.AtVec(1)) < threshold &&
		math.Abs(dx.AtVec(2)) < threshold
}

// setDop fills the covariance and DOP values when the geometry allows it
func setDop(rslt *TrilatSol, anchors Anchors) {
	G, dr, err := designMatrix(rslt.Ranges, anchors, rslt.Pos)
	if err != nil {
		return
	}
	_, cov, err := SolveLS(G, dr, nil)
	if err != nil {
		PrintD(2, "\ttrilat: no covariance at %s, err=%v", rslt.Pos, err)
		return
	}
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			rslt.Cov[j][k] = cov.At(j, k)
		}
	}
	rslt.Dop["pdop"] = math.Sqrt(cov.At(0, 0) + cov.At(1, 1) + cov.At(2, 2))
	rslt.Dop["hdop"] = math.Sqrt(cov.At(0, 0) + cov.At(1, 1))
	rslt.Dop["vdop"] = math.Sqrt(cov.At(2, 2))
}

//-------------------------------------------------------------------
// Position estimator
//-------------------------------------------------------------------

// RangeEstimationContext owns every filter state of the range side of the pipeline.
// One context per robot; tags are separated by key.
type RangeEstimationContext struct {
	Kalman *KalmanBank       // One Kalman filter per sensor index
	Window *MovingAverage    // Trilateration pre-filter keyed "{tag}_{i}"
	last   map[string]PosXYZ // Last estimate per tag, used for warm starts
}

func NewRangeEstimationContext(kopt KalmanOpt, window int) (*RangeEstimationContext, error) {
	ma, err := NewMovingAverage(window)
	if err != nil {
		return nil, err
	}
	return &RangeEstimationContext{
		Kalman: NewKalmanBank(kopt),
		Window: ma,
		last:   map[string]PosXYZ{},
	}, nil
}

// Last returns the previous estimate of tag, if any
func (c *RangeEstimationContext) Last(tagID string) (PosXYZ, bool) {
	p, ok := c.last[tagID]
	return p, ok
}

// EstimatePosition pre-filters the ranges of tagID and trilaterates them.
// The origin is the seed unless opt.WarmStart is set and the tag has a previous estimate.
func EstimatePosition(ectx *RangeEstimationContext, ranges []float64, anchors Anchors, tagID string, opt *TrilatOpt) (*TrilatSol, error) {
	if len(ranges) != len(anchors) {
		return nil, errors.Wrapf(ErrInvalidMeasurement, "%d ranges for %d anchors", len(ranges), len(anchors))
	}

	filtered := make([]float64, len(ranges))
	for i, r := range ranges {
		filtered[i] = ectx.Window.Filter(fmt.Sprintf("%s_%d", tagID, i), r)
	}

	seed := PosXYZ{}
	if opt.WarmStart {
		if p, ok := ectx.last[tagID]; ok {
			seed = p
		}
	}

	sol, err := Trilaterate(filtered, anchors, seed, opt)
	if err != nil {
		return nil, errors.Wrapf(err, "tag %s", tagID)
	}
	ectx.last[tagID] = sol.Pos
	return sol, nil
}
