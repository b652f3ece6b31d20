// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

// Implements the per-sensor scalar Kalman filter used to smooth raw ranges.

package gouwb

// Initial estimation error covariance of a new filter
const KALMAN_INITIAL_COV = 1.0

// KalmanOpt contains the noise parameters shared by all range filters
type KalmanOpt struct {
	Q  float64 `yaml:"q"`       // Process variance
	R  float64 `yaml:"r"`       // Measurement variance
	X0 float64 `yaml:"initial"` // Initial estimate [mm]
}

// NewKalmanOpt creates a new KalmanOpt with default values
func NewKalmanOpt() *KalmanOpt {
	return &KalmanOpt{
		Q:  0.02, // Process variance
		R:  0.2,  // Measurement variance
		X0: 0.0,  // Initial estimate
	}
}

// RangeKalman is a random-walk 1D Kalman filter
type RangeKalman struct {
	q, r float64
	x    float64 // Estimate
	p    float64 // Estimation error covariance
}

func NewRangeKalman(opt KalmanOpt) *RangeKalman {
	return &RangeKalman{
		q: opt.Q,
		r: opt.R,
		x: opt.X0,
		p: KALMAN_INITIAL_COV,
	}
}

// Update incorporates a measurement and returns the new estimate.
// z must already be validated.
func (kf *RangeKalman) Update(z float64) float64 {
	kf.p += kf.q              // Prediction
	k := kf.p / (kf.p + kf.r) // Kalman gain
	kf.x += k * (z - kf.x)    // Correction
	kf.p *= 1 - k
	return kf.x
}

func (kf *RangeKalman) Estimate() float64 {
	return kf.x
}

func (kf *RangeKalman) Covariance() float64 {
	return kf.p
}

// KalmanBank holds one filter per sensor index, created on first use
type KalmanBank struct {
	opt     KalmanOpt
	filters map[int]*RangeKalman
}

func NewKalmanBank(opt KalmanOpt) *KalmanBank {
	return &KalmanBank{
		opt:     opt,
		filters: map[int]*RangeKalman{},
	}
}

// Update filters the range of sensor i
func (b *KalmanBank) Update(i int, z float64) float64 {
	kf, ok := b.filters[i]
	if !ok {
		kf = NewRangeKalman(b.opt)
		b.filters[i] = kf
		PrintD(2, "\tkalman: new filter for sensor %d", i)
	}
	return kf.Update(z)
}

// Filter runs every range through its own filter
func (b *KalmanBank) Filter(ranges []float64) []float64 {
	out := make([]float64, len(ranges))
	for i, z := range ranges {
		out[i] = b.Update(i, z)
	}
	return out
}

// Get returns the filter of sensor i, or nil if it was never used
func (b *KalmanBank) Get(i int) *RangeKalman {
	return b.filters[i]
}
