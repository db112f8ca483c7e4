// Package control drives the device session on a fixed cadence.
package control

import (
	"context"
	"time"

	"codeberg.org/isvind/gpufanctl/internal/device"
	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/logger"
	"codeberg.org/isvind/gpufanctl/internal/telemetry"
)

// Stepper performs one control decision. Implemented by the device
// session.
type Stepper interface {
	StepControl(lastTemp int) (device.StepResult, error)
}

// Loop is the closed-loop fan controller. It owns a single piece of
// mutable state: the last acted-upon temperature.
type Loop struct {
	stepper   Stepper
	collector telemetry.Collector
	interval  time.Duration
}

func NewLoop(stepper Stepper, collector telemetry.Collector, interval time.Duration) *Loop {
	return &Loop{
		stepper:   stepper,
		collector: collector,
		interval:  interval,
	}
}

// Run steps the controller until ctx is cancelled or a step fails.
// Any step error is terminal: a controller that cannot read or
// command the device must not keep running silently, so the fault is
// returned and the caller tears the daemon down. The loop sleeps the
// full interval between steps regardless of step duration.
func (l *Loop) Run(ctx context.Context) error {
	errFactory := errors.New()

	logger.Info().Dur("interval", l.interval).Msg("Starting fan controller")

	lastTemp := 0
	for {
		res, err := l.stepper.StepControl(lastTemp)
		if err != nil {
			return errFactory.Wrap(errors.ErrControlLoopFault, err)
		}

		l.record(ctx, lastTemp, res)
		lastTemp = res.Temperature

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.interval):
		}
	}
}

func (l *Loop) record(ctx context.Context, lastTemp int, res device.StepResult) {
	sample := &telemetry.Sample{
		Timestamp:       time.Now(),
		Temperature:     res.Temperature,
		LastTemperature: lastTemp,
		Duty:            res.Duty,
		Applied:         res.Applied,
	}

	// Telemetry is best-effort; a full disk must not stop the fans.
	if err := l.collector.Record(ctx, sample); err != nil {
		logger.Warn().Err(err).Msg("Failed to record control step")
	}
}
