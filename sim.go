// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"math"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimOpt describes a tag moving on a horizontal circle
type SimOpt struct {
	Center  PosXYZ  `yaml:"center"`  // Circle center [mm]
	Radius  float64 `yaml:"radius"`  // [mm]
	Step    float64 `yaml:"step"`    // Angle advanced per read [rad]
	Noise   float64 `yaml:"noise"`   // Range noise standard deviation [mm]
	Dropout float64 `yaml:"dropout"` // Probability that one range of a read is lost
	Seed    uint64  `yaml:"seed"`
}

// NewSimOpt creates a new SimOpt with default values
func NewSimOpt() *SimOpt {
	return &SimOpt{
		Center:  PosXYZ{X: 2000, Y: 1500, Z: 300},
		Radius:  1000,
		Step:    0.02,
		Noise:   20,
		Dropout: 0.01,
		Seed:    1,
	}
}

// SimSource produces noisy ranges from a simulated tag
type SimSource struct {
	mu      sync.Mutex
	opt     SimOpt
	anchors Anchors
	theta   float64
	pos     PosXYZ
	rng     *rand.Rand
	noise   distuv.Normal
}

func NewSimSource(opt SimOpt, anchors Anchors) *SimSource {
	rng := rand.New(rand.NewSource(opt.Seed))
	s := &SimSource{
		opt:     opt,
		anchors: anchors,
		rng:     rng,
		noise:   distuv.Normal{Mu: 0, Sigma: opt.Noise, Src: rng},
	}
	s.pos = s.at(0)
	return s
}

func (s *SimSource) at(theta float64) PosXYZ {
	return PosXYZ{
		X: s.opt.Center.X + s.opt.Radius*math.Cos(theta),
		Y: s.opt.Center.Y + s.opt.Radius*math.Sin(theta),
		Z: s.opt.Center.Z,
	}
}

// ReadRanges advances the tag one step and returns its ranges [mm]
func (s *SimSource) ReadRanges() ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.theta += s.opt.Step
	s.pos = s.at(s.theta)

	ranges := make([]float64, len(s.anchors))
	for i := range s.anchors {
		ranges[i] = EucDist(&s.pos, &s.anchors[i])
		if s.opt.Noise > 0 {
			ranges[i] += s.noise.Rand()
		}
	}
	if s.opt.Dropout > 0 && s.rng.Float64() < s.opt.Dropout {
		ranges[s.rng.Intn(len(ranges))] = 0
	}
	return ranges, nil
}

// Pos returns the true position of the last read
func (s *SimSource) Pos() PosXYZ {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}
