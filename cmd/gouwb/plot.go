// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package main

import (
	"fmt"
	"os"
	"path/filepath"

	m "github.com/mkhts/gouwb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Write the run history as PNG files in dir
func savePlots(dir string, h *m.History, anchors m.Anchors) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if err := saveDutyPlot(filepath.Join(dir, "wheel_duty.png"), h); err != nil {
		return err
	}
	if err := saveTrackPlot(filepath.Join(dir, "tag_track.png"), h, anchors); err != nil {
		return err
	}
	return saveAnglePlot(filepath.Join(dir, "heading.png"), h)
}

// Left and right duties over time
func saveDutyPlot(fn string, h *m.History) error {
	if h.Len() == 0 {
		return nil
	}
	p := plot.New()
	p.Title.Text = "Wheel duty"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "PWM"
	p.Y.Min, p.Y.Max = 0, m.PWM_MAX
	p.Add(plotter.NewGrid())

	left := make(plotter.XYs, h.Len())
	right := make(plotter.XYs, h.Len())
	for i := range h.T {
		left[i].X, left[i].Y = h.T[i], float64(h.Left[i])
		right[i].X, right[i].Y = h.T[i], float64(h.Right[i])
	}
	if err := plotutil.AddLines(p, "left", left, "right", right); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, fn)
}

// Tag positions on the horizontal plane, with the anchors
func saveTrackPlot(fn string, h *m.History, anchors m.Anchors) error {
	p := plot.New()
	p.Title.Text = "Tag track"
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.Add(plotter.NewGrid())

	ap := make(plotter.XYs, len(anchors))
	for i, a := range anchors {
		ap[i].X, ap[i].Y = a.X, a.Y
	}
	sc, err := plotter.NewScatter(ap)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Shape = draw.TriangleGlyph{}
	sc.GlyphStyle.Color = plotutil.Color(2)
	sc.GlyphStyle.Radius = vg.Points(5)
	p.Add(sc)
	p.Legend.Add("anchors", sc)

	if len(h.TagX) > 0 {
		tp := make(plotter.XYs, len(h.TagX))
		for i := range h.TagX {
			tp[i].X, tp[i].Y = h.TagX[i], h.TagY[i]
		}
		line, err := plotter.NewLine(tp)
		if err != nil {
			return err
		}
		line.LineStyle.Color = plotutil.Color(0)
		p.Add(line)
		p.Legend.Add("tag", line)
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, fn)
}

// Heading angle per estimate
func saveAnglePlot(fn string, h *m.History) error {
	if len(h.Angle) == 0 {
		return nil
	}
	p := plot.New()
	p.Title.Text = "Heading"
	p.X.Label.Text = "estimate"
	p.Y.Label.Text = "angle (deg)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(h.Angle))
	for i, a := range h.Angle {
		pts[i].X, pts[i].Y = float64(i), a
	}
	if err := plotutil.AddLines(p, "angle", pts); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, fn)
}
