// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the cycle results to Prometheus
type Metrics struct {
	cycles     *prometheus.CounterVec
	position   *prometheus.GaugeVec
	duty       *prometheus.GaugeVec
	residual   prometheus.Gauge
	angle      prometheus.Gauge
	correction prometheus.Gauge
	speed      prometheus.Gauge
	residuals  prometheus.Histogram
	battery    prometheus.Gauge
	current    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gouwb_cycles_total",
				Help: "Control cycles by outcome",
			},
			[]string{"outcome"},
		),
		position: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gouwb_tag_position_mm",
				Help: "Estimated tag position in the anchor frame",
			},
			[]string{"axis"},
		),
		duty: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gouwb_wheel_duty",
				Help: "Last duty sent to each wheel (0-255)",
			},
			[]string{"wheel"},
		),
		residual: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gouwb_residual_mm",
			Help: "Mean absolute range deviation of the last estimate",
		}),
		angle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gouwb_heading_degrees",
			Help: "Smoothed heading angle of the tag",
		}),
		correction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gouwb_correction",
			Help: "Steering correction of the last cycle",
		}),
		speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gouwb_linear_speed",
			Help: "Linear speed from the distance profile",
		}),
		residuals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gouwb_residual_distribution_mm",
			Help:    "Distribution of trilateration residuals",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
		battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gouwb_battery_volts",
			Help: "Battery voltage reported by the ranging board",
		}),
		current: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gouwb_motor_current_amperes",
				Help: "Motor current reported by the ranging board",
			},
			[]string{"motor"},
		),
	}
	reg.MustRegister(m.cycles, m.position, m.duty, m.residual, m.angle, m.correction, m.speed, m.residuals, m.battery, m.current)
	for _, o := range []string{OUTCOME_OK, OUTCOME_INVALID, OUTCOME_NO_SOLUTION, OUTCOME_DEGENERATE, OUTCOME_ARRIVED} {
		m.cycles.WithLabelValues(o)
	}
	return m
}

func (m *Metrics) Observe(res CycleResult) {
	m.cycles.WithLabelValues(res.Outcome).Inc()
	m.duty.WithLabelValues("left").Set(float64(res.Command.Left))
	m.duty.WithLabelValues("right").Set(float64(res.Command.Right))
	if res.Power != nil {
		m.battery.Set(res.Power.Vbat)
		m.current.WithLabelValues("1").Set(res.Power.Curr1)
		m.current.WithLabelValues("2").Set(res.Power.Curr2)
	}
	if res.Sol == nil {
		return
	}
	m.position.WithLabelValues("x").Set(res.Position.X)
	m.position.WithLabelValues("y").Set(res.Position.Y)
	m.position.WithLabelValues("z").Set(res.Position.Z)
	m.residual.Set(res.Residual)
	m.residuals.Observe(res.Residual)
	m.angle.Set(res.Angle)
	m.correction.Set(res.Correction)
	m.speed.Set(res.Speed)
}
