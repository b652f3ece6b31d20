// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import "time"

// History records the series drawn at the end of a run
type History struct {
	t0    time.Time
	T     []float64 // Seconds since the first cycle
	Left  []int     // Duties of cycles that drove the wheels
	Right []int
	TagX  []float64 // Positions of cycles with an estimate [mm]
	TagY  []float64
	Angle []float64 // Angles of cycles with a defined heading [deg]
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Observe(res CycleResult) {
	if h.t0.IsZero() {
		h.t0 = res.Time
	}
	if res.Sol != nil {
		h.TagX = append(h.TagX, res.Position.X)
		h.TagY = append(h.TagY, res.Position.Y)
	}
	if res.HeadingOK {
		h.Angle = append(h.Angle, res.Angle)
	}
	if res.Command.IsStop() {
		return
	}
	h.T = append(h.T, res.Time.Sub(h.t0).Seconds())
	h.Left = append(h.Left, res.Command.Left)
	h.Right = append(h.Right, res.Command.Right)
}

func (h *History) Len() int {
	return len(h.T)
}
