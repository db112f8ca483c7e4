package device

import (
	"fmt"
	"testing"

	"codeberg.org/isvind/gpufanctl/internal/curve"
	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSurface scripts device behavior and records commands.
type fakeSurface struct {
	temp        int
	tempErr     error
	numFans     int
	setSpeeds   []fanCommand // SetFanSpeed calls, in order
	restored    []int        // SetAutoFanPolicy calls, in order
	restoreErr  error
	setSpeedErr error
	runtimeErr  error
	closed      bool
}

type fanCommand struct {
	index int
	duty  int
}

func (f *fakeSurface) Name() (string, error)                { return "Test GPU", nil }
func (f *fakeSurface) Architecture() (state.Architecture, error) { return state.ArchAda, nil }
func (f *fakeSurface) CoreCount() (int, error)              { return 1024, nil }
func (f *fakeSurface) FanCount() (int, error)               { return f.numFans, nil }

func (f *fakeSurface) SysInfo() (state.SysInfo, error) {
	return state.SysInfo{DriverVersion: "565.77"}, nil
}

func (f *fakeSurface) TempThresholds() (state.TempThresholds, error) {
	return state.TempThresholds{Shutdown: 98, Slowdown: 95, GpuMax: 90}, nil
}

func (f *fakeSurface) MinMaxFanSpeed() (state.MinMaxFanSpeeds, error) {
	return state.MinMaxFanSpeeds{Min: 0, Max: 100}, nil
}

func (f *fakeSurface) MaxPCIeLink() (state.PCIeLink, error) {
	return state.PCIeLink{Gen: 4, Width: 16, SpeedMBps: 16000}, nil
}

func (f *fakeSurface) Temperature() (int, error) {
	if f.tempErr != nil {
		return 0, f.tempErr
	}
	return f.temp, nil
}

func (f *fakeSurface) CurrentPCIeLink() (state.PCIeLink, error) {
	return state.PCIeLink{Gen: 4, Width: 16, SpeedMBps: 16000}, f.runtimeErr
}

func (f *fakeSurface) MemoryInfo() (state.MemoryInfo, error) {
	return state.MemoryInfo{Free: 1, Total: 2, Used: 1}, nil
}

func (f *fakeSurface) PowerUsage() (float64, error) { return 200.5, nil }

func (f *fakeSurface) ClockSpeeds() (state.ClockSpeeds, error) {
	return state.ClockSpeeds{Graphics: 2205}, nil
}

func (f *fakeSurface) FanSpeed(index int) (int, error)       { return 40, nil }
func (f *fakeSurface) TargetFanSpeed(index int) (int, error) { return 42, nil }

func (f *fakeSurface) FanControlPolicy(index int) (state.FanPolicy, error) {
	return state.PolicyManual, nil
}

func (f *fakeSurface) SetFanSpeed(index, duty int) error {
	if f.setSpeedErr != nil {
		return f.setSpeedErr
	}
	f.setSpeeds = append(f.setSpeeds, fanCommand{index: index, duty: duty})
	return nil
}

func (f *fakeSurface) SetAutoFanPolicy(index int) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restored = append(f.restored, index)
	return nil
}

func (f *fakeSurface) Close() error {
	f.closed = true
	return nil
}

func testTable(t *testing.T) *curve.Table {
	t.Helper()
	table, err := curve.Compile([]curve.Anchor{
		{Temperature: 20, Duty: 20},
		{Temperature: 50, Duty: 50},
		{Temperature: 80, Duty: 100},
	})
	require.NoError(t, err)
	return table
}

func testSession(t *testing.T, surface *fakeSurface, hysteresis int) *Session {
	t.Helper()
	sess, err := newSession(surface, testTable(t), hysteresis)
	require.NoError(t, err)
	return sess
}

func TestStepControlInsideHysteresisBand(t *testing.T) {
	surface := &fakeSurface{temp: 52, numFans: 2}
	sess := testSession(t, surface, 3)

	res, err := sess.StepControl(50)
	require.NoError(t, err)

	assert.False(t, res.Applied)
	assert.Equal(t, 50, res.Temperature, "last temp carries forward inside the band")
	assert.Empty(t, surface.setSpeeds)
}

func TestStepControlOutsideHysteresisBand(t *testing.T) {
	surface := &fakeSurface{temp: 54, numFans: 2}
	sess := testSession(t, surface, 3)

	res, err := sess.StepControl(50)
	require.NoError(t, err)

	assert.True(t, res.Applied)
	assert.Equal(t, 54, res.Temperature, "new center is the observed reading")
	assert.Equal(t, 54, res.Duty)
	require.Len(t, surface.setSpeeds, 2)
	assert.Equal(t, fanCommand{index: 0, duty: 54}, surface.setSpeeds[0])
	assert.Equal(t, fanCommand{index: 1, duty: 54}, surface.setSpeeds[1])
}

func TestStepControlBandSaturatesAtZero(t *testing.T) {
	surface := &fakeSurface{temp: 0, numFans: 1}
	sess := testSession(t, surface, 5)

	// lastTemp 2 with hysteresis 5 would put the band's low end below
	// zero; a 0C reading must still count as inside the band.
	res, err := sess.StepControl(2)
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestStepControlRejectsImpossibleTemperature(t *testing.T) {
	surface := &fakeSurface{temp: 300, numFans: 1}
	sess := testSession(t, surface, 3)

	_, err := sess.StepControl(50)
	require.Error(t, err)

	var domainErr errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.ErrSensorAnomaly, domainErr.Code())
}

func TestStepControlPropagatesDeviceFault(t *testing.T) {
	surface := &fakeSurface{numFans: 1, tempErr: fmt.Errorf("sensor detached")}
	sess := testSession(t, surface, 3)

	_, err := sess.StepControl(0)
	require.Error(t, err)
	assert.Contains(t, errors.Chain(err), "sensor detached")
}

func TestReadSnapshot(t *testing.T) {
	surface := &fakeSurface{temp: 61, numFans: 2}
	sess := testSession(t, surface, 3)

	snap, err := sess.ReadSnapshot()
	require.NoError(t, err)

	assert.Equal(t, "Test GPU", snap.Persistent.DeviceName)
	assert.Equal(t, 2, snap.Persistent.NumFans)
	assert.Equal(t, 61, snap.Runtime.DeviceTemperature)
	require.Len(t, snap.Runtime.FanStates, 2)
	assert.Equal(t, 1, snap.Runtime.FanStates[1].Index)
	assert.Len(t, snap.FanCurve, 256)
	assert.False(t, snap.Runtime.ProbeTime.IsZero())
}

func TestReadSnapshotWrapsDeviceError(t *testing.T) {
	surface := &fakeSurface{numFans: 1, runtimeErr: fmt.Errorf("link down")}
	sess := testSession(t, surface, 3)

	_, err := sess.ReadSnapshot()
	require.Error(t, err)

	chain := errors.Chain(err)
	assert.Equal(t, "Failed to read device snapshot", chain[0])
	assert.Contains(t, chain, "link down")
}

func TestCloseRestoresEveryFanInOrder(t *testing.T) {
	surface := &fakeSurface{numFans: 3}
	sess := testSession(t, surface, 3)

	sess.Close()

	assert.Equal(t, []int{0, 1, 2}, surface.restored)
	assert.True(t, surface.closed)

	// A second close must not issue further restore commands.
	sess.Close()
	assert.Equal(t, []int{0, 1, 2}, surface.restored)
}

func TestClosePanicsWhenRestoreFails(t *testing.T) {
	surface := &fakeSurface{numFans: 1, restoreErr: fmt.Errorf("device gone")}
	sess := testSession(t, surface, 3)

	assert.Panics(t, func() { sess.Close() })
}
