// Package device owns the one open device connection. The Session is
// the only permitted handle through which the capability surface is
// invoked, and it guarantees that automatic fan policy is restored on
// teardown.
package device

import (
	"sync"
	"time"

	"codeberg.org/isvind/gpufanctl/internal/config"
	"codeberg.org/isvind/gpufanctl/internal/curve"
	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/logger"
	"codeberg.org/isvind/gpufanctl/internal/state"
)

// Session is the exclusive owner of the device connection. All
// device-facing calls are serialized through its mutex: simultaneous
// native calls against the same connection have undefined behavior.
type Session struct {
	mu         sync.Mutex
	surface    Surface
	persistent state.PersistentParams
	table      *curve.Table
	hysteresis int
	closed     bool
}

// StepResult reports the outcome of one control step.
type StepResult struct {
	Temperature int
	Duty        int
	Applied     bool
}

// Open compiles the fan curve, claims the single device and performs
// the one-time persistent probe. The returned session must be closed
// exactly once.
func Open(cfg *config.Config) (*Session, error) {
	table, err := curve.Compile(cfg.Anchors())
	if err != nil {
		return nil, err
	}

	surface, err := openNVML()
	if err != nil {
		return nil, err
	}

	sess, err := newSession(surface, table, cfg.Hysteresis)
	if err != nil {
		surface.Close()
		return nil, err
	}

	logger.Info().
		Str("device", sess.persistent.DeviceName).
		Int("fans", sess.persistent.NumFans).
		Msg("Device session opened")

	return sess, nil
}

func newSession(surface Surface, table *curve.Table, hysteresis int) (*Session, error) {
	persistent, err := probePersistent(surface)
	if err != nil {
		return nil, err
	}

	return &Session{
		surface:    surface,
		persistent: persistent,
		table:      table,
		hysteresis: hysteresis,
	}, nil
}

func probePersistent(surface Surface) (state.PersistentParams, error) {
	errFactory := errors.New()
	var p state.PersistentParams
	var err error

	if p.DeviceName, err = surface.Name(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.Architecture, err = surface.Architecture(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.NumCores, err = surface.CoreCount(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.NumFans, err = surface.FanCount(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.SysInfo, err = surface.SysInfo(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.MaxPCIeLink, err = surface.MaxPCIeLink(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.TempThresholds, err = surface.TempThresholds(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}
	if p.FanSpeedBounds, err = surface.MinMaxFanSpeed(); err != nil {
		return p, errFactory.Wrap(errors.ErrDeviceProbe, err)
	}

	return p, nil
}

// Persistent returns the session's immutable device attributes.
func (s *Session) Persistent() state.PersistentParams {
	return s.persistent
}

// ReadSnapshot re-samples every runtime parameter and returns a fresh
// snapshot. It never mutates device configuration.
func (s *Session) ReadSnapshot() (*state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errFactory := errors.New()

	runtime, err := s.probeRuntime()
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrSnapshotRead, err)
	}

	return &state.Snapshot{
		Runtime:    runtime,
		Persistent: s.persistent,
		FanCurve:   s.table.Points(),
	}, nil
}

func (s *Session) probeRuntime() (state.RuntimeParams, error) {
	var r state.RuntimeParams
	var err error

	r.ProbeTime = time.Now()

	if r.CurrentPCIeLink, err = s.surface.CurrentPCIeLink(); err != nil {
		return r, err
	}
	if r.MemoryInfo, err = s.surface.MemoryInfo(); err != nil {
		return r, err
	}
	if r.PowerUsage, err = s.surface.PowerUsage(); err != nil {
		return r, err
	}
	if r.DeviceTemperature, err = s.surface.Temperature(); err != nil {
		return r, err
	}
	if r.ClockSpeeds, err = s.surface.ClockSpeeds(); err != nil {
		return r, err
	}

	r.FanStates = make([]state.FanState, 0, s.persistent.NumFans)
	for index := 0; index < s.persistent.NumFans; index++ {
		fan, err := s.probeFan(index)
		if err != nil {
			return r, err
		}
		r.FanStates = append(r.FanStates, fan)
	}

	return r, nil
}

func (s *Session) probeFan(index int) (state.FanState, error) {
	fan := state.FanState{Index: index}
	var err error

	if fan.Speed, err = s.surface.FanSpeed(index); err != nil {
		return fan, err
	}
	if fan.Duty, err = s.surface.TargetFanSpeed(index); err != nil {
		return fan, err
	}
	if fan.ControlPolicy, err = s.surface.FanControlPolicy(index); err != nil {
		return fan, err
	}

	return fan, nil
}

// StepControl performs one control decision. The hysteresis band is
// centered on lastTemp, saturating at 0. Inside the band nothing is
// committed and lastTemp is carried forward; outside it, the curve
// duty for the observed temperature is applied to every fan and the
// observed temperature becomes the new center.
func (s *Session) StepControl(lastTemp int) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errFactory := errors.New()

	temp, err := s.surface.Temperature()
	if err != nil {
		return StepResult{}, errFactory.Wrap(errors.ErrControlStep, err)
	}

	low := lastTemp - s.hysteresis
	if low < 0 {
		low = 0
	}
	if temp >= low && temp <= lastTemp+s.hysteresis {
		logger.Debug().Int("temperature", temp).Msg("Temperature within hysteresis, duty unchanged")
		return StepResult{Temperature: lastTemp, Applied: false}, nil
	}

	// A reading past the table's domain means the sensor or driver is
	// lying; treat it as unrecoverable rather than clamping.
	if temp > 255 {
		return StepResult{}, errFactory.WithData(errors.ErrSensorAnomaly, temp)
	}

	duty := int(s.table.Lookup(uint8(temp)))
	for index := 0; index < s.persistent.NumFans; index++ {
		if err := s.surface.SetFanSpeed(index, duty); err != nil {
			return StepResult{}, errFactory.Wrap(errors.ErrControlStep, err)
		}
	}

	logger.Debug().Int("temperature", temp).Int("duty", duty).Msg("Fan duty changed")

	return StepResult{Temperature: temp, Duty: duty, Applied: true}, nil
}

// Close restores automatic fan policy on every managed fan, in
// ascending index order, then releases the device. A restore failure
// panics: continuing with fans possibly stuck at a stale manual duty
// and no controller running risks hardware damage.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	errFactory := errors.New()

	for index := 0; index < s.persistent.NumFans; index++ {
		if err := s.surface.SetAutoFanPolicy(index); err != nil {
			panic(errFactory.Wrap(errors.ErrRestorePolicy, err))
		}
	}
	logger.Info().Msg("All fans restored to automatic policy")

	if err := s.surface.Close(); err != nil {
		logger.Warn().Err(err).Msg("Device release failed")
	}
}
