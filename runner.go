// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Observer receives the result of every cycle. It must not modify it.
type Observer interface {
	Observe(res CycleResult)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(res CycleResult)

func (f ObserverFunc) Observe(res CycleResult) {
	f(res)
}

// RunOpt controls the cycle loop
type RunOpt struct {
	Period    time.Duration // Cycle period. 0 runs cycles back to back
	NumCycles int           // 0 runs until the context is cancelled
	Power     PowerSource   // Battery telemetry attached to each result. Optional
	Observers []Observer
}

// Run executes the control loop: read ranges, step the pipeline, send the command,
// notify the observers, wait for the next tick.
// The loop ends at a cycle boundary when ctx is cancelled or NumCycles is reached,
// after which a stop command is sent. It returns the number of cycles run.
// A failing sink aborts the loop.
func Run(ctx context.Context, src RangeSource, sink MotorSink, pl *Pipeline, opt RunOpt) (int, error) {
	var tick <-chan time.Time
	if opt.Period > 0 {
		ticker := time.NewTicker(opt.Period)
		defer ticker.Stop()
		tick = ticker.C
	}

	t0 := time.Now()
	ncycle := 0
	var rerr error
loop:
	for opt.NumCycles <= 0 || ncycle < opt.NumCycles {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		var res CycleResult
		ranges, err := src.ReadRanges()
		if err != nil {
			res = pl.Reject(err)
		} else {
			res = pl.Step(ranges)
		}
		res.Cycle = ncycle
		res.Time = time.Now()
		if opt.Power != nil {
			if pw, ok := opt.Power.Power(); ok {
				res.Power = &pw
			}
		}

		if err := SendCommand(sink, res.Command); err != nil {
			rerr = errors.Wrapf(err, "cycle %d: send %v", ncycle, res.Command)
			break loop
		}
		logCycle(res, time.Since(t0))
		for _, o := range opt.Observers {
			o.Observe(res)
		}
		ncycle++

		if tick != nil && (opt.NumCycles <= 0 || ncycle < opt.NumCycles) {
			select {
			case <-ctx.Done():
				break loop
			case <-tick:
			}
		}
	}

	if err := Stop(sink); err != nil && rerr == nil {
		rerr = errors.Wrap(err, "send stop")
	}
	log.WithField("cycles", ncycle).Info("control loop finished")
	return ncycle, rerr
}

func logCycle(res CycleResult, elapsed time.Duration) {
	entry := log.WithFields(log.Fields{
		"cycle":   res.Cycle,
		"t":       elapsed.Seconds(),
		"outcome": res.Outcome,
		"cmd":     res.Command.String(),
	})
	if res.Power != nil {
		entry = entry.WithFields(log.Fields{
			"vbat":  res.Power.Vbat,
			"curr1": res.Power.Curr1,
			"curr2": res.Power.Curr2,
		})
	}
	switch res.Outcome {
	case OUTCOME_INVALID, OUTCOME_NO_SOLUTION:
		entry.WithError(res.Err).Warn("cycle stopped")
	default:
		entry.WithFields(log.Fields{
			"pos":        res.Position.String(),
			"residual":   res.Residual,
			"angle":      res.Angle,
			"correction": res.Correction,
			"speed":      res.Speed,
		}).Debug("cycle")
	}
}
