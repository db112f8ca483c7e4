package state_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/isvind/gpufanctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() state.Snapshot {
	return state.Snapshot{
		Runtime: state.RuntimeParams{
			ProbeTime:       time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
			CurrentPCIeLink: state.PCIeLink{Gen: 4, Width: 16, SpeedMBps: 16000},
			MemoryInfo:      state.MemoryInfo{Free: 1 << 30, Total: 8 << 30, Used: 7 << 30},
			PowerUsage:      213.4,
			DeviceTemperature: 67,
			FanStates: []state.FanState{
				{Index: 0, Speed: 48, Duty: 50, ControlPolicy: state.PolicyManual},
				{Index: 1, Speed: 47, Duty: 50, ControlPolicy: state.PolicyManual},
			},
			ClockSpeeds: state.ClockSpeeds{Memory: 9501, Graphics: 2205, Video: 1950, StreamingMultiprocessor: 2205},
		},
		Persistent: state.PersistentParams{
			SysInfo: state.SysInfo{
				DriverVersion:  "565.77",
				NVMLVersion:    "12.565.77",
				CudaVersion:    state.CudaVersion{Major: 12, Minor: 7},
				CudaCapability: state.CudaVersion{Major: 8, Minor: 9},
			},
			DeviceName:     "NVIDIA GeForce RTX 4080",
			Architecture:   state.ArchAda,
			NumCores:       9728,
			NumFans:        2,
			MaxPCIeLink:    state.PCIeLink{Gen: 4, Width: 16, SpeedMBps: 16000},
			TempThresholds: state.TempThresholds{Shutdown: 98, Slowdown: 95, GpuMax: 90},
			FanSpeedBounds: state.MinMaxFanSpeeds{Min: 0, Max: 100},
		},
		FanCurve: []state.CurvePoint{
			{Temperature: 20, Duty: 20},
			{Temperature: 50, Duty: 50},
			{Temperature: 80, Duty: 100},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := sampleSnapshot()

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded state.Snapshot
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, original, decoded)
}

func TestSnapshotFieldNames(t *testing.T) {
	encoded, err := json.Marshal(sampleSnapshot())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(encoded, &raw))
	assert.Contains(t, raw, "runtime")
	assert.Contains(t, raw, "persistent")
	assert.Contains(t, raw, "fan_curve")
}
