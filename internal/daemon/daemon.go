// Package daemon assembles the control session, snapshot server, and
// control loop into one supervised process.
package daemon

import (
	"context"
	"syscall"

	"github.com/oklog/run"

	"codeberg.org/isvind/gpufanctl/internal/config"
	"codeberg.org/isvind/gpufanctl/internal/control"
	"codeberg.org/isvind/gpufanctl/internal/device"
	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/logger"
	"codeberg.org/isvind/gpufanctl/internal/pid"
	"codeberg.org/isvind/gpufanctl/internal/server"
	"codeberg.org/isvind/gpufanctl/internal/state"
	"codeberg.org/isvind/gpufanctl/internal/telemetry"
)

// Run starts the daemon with the configuration at configPath and
// blocks until a termination signal arrives or an actor fails. The
// device is handed back to driver control before Run returns, no
// matter which actor stopped first.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(cfg.LogLevel == "debug", cfg.LogLevel == "verbose", logger.IsService())

	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove pid file")
		}
	}()

	session, err := device.Open(cfg)
	if err != nil {
		return err
	}
	// Restoring driver control must happen on every exit path. A
	// failed restore panics inside Close, deliberately.
	defer session.Close()

	collector, err := telemetry.NewCollector(telemetry.Config{
		Enabled: cfg.Telemetry,
		DBPath:  cfg.TelemetryDB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close telemetry store")
		}
	}()

	persistent := session.Persistent()
	logger.Info().
		Str("device", persistent.DeviceName).
		Str("architecture", string(persistent.Architecture)).
		Int("fans", persistent.NumFans).
		Float64("interval_seconds", cfg.ResponseTime).
		Int("hysteresis", cfg.Hysteresis).
		Msg("Device session established")

	srv := server.New(session, state.SocketPath)
	loop := control.NewLoop(session, collector, cfg.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var group run.Group

	group.Add(func() error {
		return srv.Run(ctx)
	}, func(error) {
		cancel()
	})

	group.Add(func() error {
		return loop.Run(ctx)
	}, func(error) {
		cancel()
	})

	group.Add(run.SignalHandler(ctx,
		syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP))

	err = group.Run()
	if err != nil {
		var signalErr run.SignalError
		if errors.As(err, &signalErr) {
			logger.Info().Str("signal", signalErr.Signal.String()).Msg("Shutting down")

			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	return nil
}
