// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Cycle outcomes
const (
	OUTCOME_OK          = "ok"          // Command computed from a full estimate
	OUTCOME_INVALID     = "invalid"     // Ranges rejected, stopped
	OUTCOME_NO_SOLUTION = "no_solution" // Trilateration failed, stopped
	OUTCOME_DEGENERATE  = "degenerate"  // Heading undefined, no correction
	OUTCOME_ARRIVED     = "arrived"     // Within the stop distance, stopped
)

// CycleResult holds every intermediate value of one control cycle
type CycleResult struct {
	Cycle      int          `json:"cycle"`
	Time       time.Time    `json:"time"`
	Valid      bool         `json:"valid"`
	Ranges     []float64    `json:"ranges"`   // Raw ranges [mm]
	Filtered   []float64    `json:"filtered"` // Kalman output [mm]
	Sol        *TrilatSol   `json:"-"`
	Position   PosXYZ       `json:"position"` // Tag position [mm]
	Residual   float64      `json:"residual"` // Mean absolute range deviation [mm]
	HeadingOK  bool         `json:"heading_ok"`
	RawAngle   float64      `json:"raw_angle"` // [deg]
	Angle      float64      `json:"angle"`     // Smoothed angle [deg]
	Corrected  bool         `json:"corrected"` // Gate passed and PID updated
	Correction float64      `json:"correction"`
	Distance   float64      `json:"distance"` // Tag distance from the anchor origin [m]
	Speed      float64      `json:"speed"`
	Turn       float64      `json:"turn"`
	Left       float64      `json:"left"`
	Right      float64      `json:"right"`
	NormLeft   float64      `json:"norm_left"`
	NormRight  float64      `json:"norm_right"`
	Command    MotorCommand `json:"command"`
	Outcome    string       `json:"outcome"`
	Power      *PowerStatus `json:"power,omitempty"` // Battery telemetry read with the ranges
	Err        error        `json:"-"`
	Message    string       `json:"error,omitempty"`
}

// Pipeline runs the estimation and control chain of one robot following one tag.
// It is not safe for concurrent use; a single control loop owns it.
type Pipeline struct {
	cfg     *Config
	anchors Anchors // Active anchors
	ectx    *RangeEstimationContext
	angles  *MovingAverage
	pid     *PIDController
	speed   *SpeedProfile
	mixer   *DriveMixer
}

func NewPipeline(cfg *Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	anchors, err := cfg.Anchors.Slice(cfg.Sensors)
	if err != nil {
		return nil, err
	}
	ectx, err := NewRangeEstimationContext(cfg.Kalman, cfg.Window)
	if err != nil {
		return nil, err
	}
	angles, err := NewMovingAverage(cfg.AngleWindow)
	if err != nil {
		return nil, err
	}
	speed := NewSpeedProfile(cfg.Speed)
	PrintD(1, "speed profile: stop at %.2f m, levels %v, max %.1f", cfg.Speed.StopDistance, speed.Levels(), cfg.Speed.MaxSpeed)
	return &Pipeline{
		cfg:     cfg,
		anchors: anchors,
		ectx:    ectx,
		angles:  angles,
		pid:     NewPIDController(cfg.PID),
		speed:   speed,
		mixer:   NewDriveMixer(cfg.Drive),
	}, nil
}

func (pl *Pipeline) Anchors() Anchors {
	return pl.anchors
}

func (pl *Pipeline) Context() *RangeEstimationContext {
	return pl.ectx
}

func (pl *Pipeline) PID() *PIDController {
	return pl.pid
}

// Step runs one control cycle on a raw range vector
func (pl *Pipeline) Step(ranges []float64) CycleResult {
	res := CycleResult{Ranges: slices.Clone(ranges)}
	n := len(pl.anchors)

	// Validation
	if err := ValidateRanges(ranges, n); err != nil {
		return pl.halt(res, OUTCOME_INVALID, err)
	}
	res.Valid = true

	// Range smoothing
	res.Filtered = pl.ectx.Kalman.Filter(ranges[:n])
	PrintD(1, "ranges: %v -> %v", ranges[:n], res.Filtered)

	// Position
	sol, err := EstimatePosition(pl.ectx, res.Filtered, pl.anchors, pl.cfg.TagID, &pl.cfg.Trilat)
	if err != nil {
		return pl.halt(res, OUTCOME_NO_SOLUTION, err)
	}
	res.Sol = sol
	res.Position = sol.Pos
	res.Residual = sol.Residual

	// Heading and steering correction
	ref := pl.cfg.Reference
	raw, err := HeadingAngle(sol.Pos, pl.anchors[ref[0]], pl.anchors[ref[1]])
	if err != nil {
		if pl.cfg.StopOnDegenerate {
			return pl.halt(res, OUTCOME_DEGENERATE, err)
		}
		res.Err = err
		res.Message = err.Error()
		PrintD(1, "heading: %v, driving straight", err)
	} else {
		res.HeadingOK = true
		res.RawAngle = raw
		res.Angle = raw
		if pl.cfg.SmoothAngle {
			res.Angle = pl.angles.Filter(pl.cfg.TagID, raw)
		}
		if ShouldCorrect(res.Angle, pl.cfg.Threshold) {
			res.Corrected = true
			res.Correction = Clamp(pl.pid.Update(res.Angle), pl.cfg.PID.OutputMin, pl.cfg.PID.OutputMax)
		} else {
			PrintD(1, "angle %.2f within threshold %.2f", res.Angle, pl.cfg.Threshold)
		}
	}

	// Linear speed
	res.Distance = sol.Pos.Norm() / MM
	res.Speed = pl.speed.Speed(res.Distance)
	if res.Speed <= 0 && pl.cfg.StopOnArrival {
		res.Command = StopCommand
		res.Outcome = OUTCOME_ARRIVED
		return res
	}

	// Wheels
	res.Left, res.Right, res.Turn = pl.mixer.Mix(res.Speed, res.Correction)
	res.NormLeft, res.NormRight = pl.mixer.Normalize(res.Left, res.Right, pl.cfg.Speed.MaxSpeed)
	res.Command = MotorCommand{Left: ToPWM(res.NormLeft), Right: ToPWM(res.NormRight)}
	res.Outcome = OUTCOME_OK
	if !res.HeadingOK {
		res.Outcome = OUTCOME_DEGENERATE
	}
	return res
}

// Reject builds the result of a cycle whose ranges could not be read
func (pl *Pipeline) Reject(err error) CycleResult {
	if !errors.Is(err, ErrInvalidMeasurement) {
		err = errors.Wrapf(ErrInvalidMeasurement, "read ranges: %v", err)
	}
	return pl.halt(CycleResult{}, OUTCOME_INVALID, err)
}

func (pl *Pipeline) halt(res CycleResult, outcome string, err error) CycleResult {
	res.Command = StopCommand
	res.Outcome = outcome
	res.Err = err
	res.Message = err.Error()
	return res
}
