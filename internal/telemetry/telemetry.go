// Package telemetry records control-loop decisions into a local
// sqlite database for later inspection. Disabled by default; when
// disabled the collector is a no-op.
package telemetry

import (
	"context"
	"time"

	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/logger"
)

// Collector is the recording interface handed to the control loop.
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Close() error
}

// Sample is one control decision.
type Sample struct {
	Timestamp       time.Time
	Temperature     int
	LastTemperature int
	Duty            int
	Applied         bool
}

type Config struct {
	Enabled bool
	DBPath  string
}

type service struct {
	repo *repository
}

type noopCollector struct{}

// NewCollector builds a Collector for cfg.
func NewCollector(cfg Config) (Collector, error) {
	if !cfg.Enabled {
		logger.Debug().Msg("Telemetry disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := newRepository(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("db_path", cfg.DBPath).Msg("Telemetry collector initialized")

	return &service{repo: repo}, nil
}

// Noop returns a collector that drops every sample.
func Noop() Collector {
	return &noopCollector{}
}

func (s *service) Record(ctx context.Context, sample *Sample) error {
	errFactory := errors.New()

	if sample == nil {
		return errFactory.New(errors.ErrInvalidArgument)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrTelemetryRecord, ctx.Err())
	default:
		return s.repo.record(sample)
	}
}

func (s *service) Close() error {
	return s.repo.close()
}

func (*noopCollector) Record(context.Context, *Sample) error { return nil }
func (*noopCollector) Close() error                          { return nil }
