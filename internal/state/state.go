// Package state holds the wire-level data model shared by the daemon
// and the monitor client.
package state

import "time"

// SocketPath is the well-known control channel path. It is fixed for
// the life of the process and owned exclusively by the daemon.
const SocketPath = "/run/gpufanctl.sock"

// Snapshot is a fully materialized, point-in-time copy of device
// state, produced fresh on every protocol request.
type Snapshot struct {
	Runtime    RuntimeParams    `json:"runtime"`
	Persistent PersistentParams `json:"persistent"`
	FanCurve   []CurvePoint     `json:"fan_curve"`
}

// CurvePoint is one (temperature, duty) entry of the active curve.
type CurvePoint struct {
	Temperature uint8 `json:"temperature"`
	Duty        uint8 `json:"duty"`
}

// PersistentParams are device attributes fixed for the session's
// lifetime, probed exactly once at session creation.
type PersistentParams struct {
	SysInfo        SysInfo         `json:"sys_info"`
	DeviceName     string          `json:"device_name"`
	Architecture   Architecture    `json:"architecture"`
	NumCores       int             `json:"num_cores"`
	NumFans        int             `json:"num_fans"`
	MaxPCIeLink    PCIeLink        `json:"max_pcie_link"`
	TempThresholds TempThresholds  `json:"temp_thresholds"`
	FanSpeedBounds MinMaxFanSpeeds `json:"minmax_fan_speeds"`
}

// RuntimeParams are re-sampled on every probe.
type RuntimeParams struct {
	ProbeTime         time.Time   `json:"probe_time"`
	CurrentPCIeLink   PCIeLink    `json:"current_pcie_link"`
	MemoryInfo        MemoryInfo  `json:"memory_info"`
	PowerUsage        float64     `json:"power_usage"`
	DeviceTemperature int         `json:"device_temperature"`
	FanStates         []FanState  `json:"fan_states"`
	ClockSpeeds       ClockSpeeds `json:"clock_speeds"`
}

// FanState reports one fan: measured speed, commanded duty, and the
// device-side control policy.
type FanState struct {
	Index         int       `json:"index"`
	Speed         int       `json:"speed"`
	Duty          int       `json:"duty"`
	ControlPolicy FanPolicy `json:"control_policy"`
}

// FanPolicy is the device-reported control mode per fan.
type FanPolicy string

const (
	PolicyAutomatic FanPolicy = "Automatic"
	PolicyManual    FanPolicy = "Manual"
	PolicyUnknown   FanPolicy = "Unknown"
)

// SysInfo describes the driver stack behind the session.
type SysInfo struct {
	DriverVersion  string      `json:"driver_version"`
	NVMLVersion    string      `json:"nvml_version"`
	CudaVersion    CudaVersion `json:"cuda_version"`
	CudaCapability CudaVersion `json:"cuda_capability"`
}

type CudaVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

type TempThresholds struct {
	Shutdown int `json:"shutdown"`
	Slowdown int `json:"slowdown"`
	GpuMax   int `json:"gpumax"`
}

type PCIeLink struct {
	Gen       int `json:"gen"`
	Width     int `json:"width"`
	SpeedMBps int `json:"speed_mbps"`
}

type ClockSpeeds struct {
	Memory                  int `json:"memory"`
	Graphics                int `json:"graphics"`
	Video                   int `json:"video"`
	StreamingMultiprocessor int `json:"streaming_multiprocessor"`
}

type MemoryInfo struct {
	Free  uint64 `json:"free"`
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
}

type MinMaxFanSpeeds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Architecture is the device generation name as reported by the
// driver.
type Architecture string

const (
	ArchKepler  Architecture = "Kepler"
	ArchMaxwell Architecture = "Maxwell"
	ArchPascal  Architecture = "Pascal"
	ArchVolta   Architecture = "Volta"
	ArchTuring  Architecture = "Turing"
	ArchAmpere  Architecture = "Ampere"
	ArchAda     Architecture = "Ada"
	ArchHopper  Architecture = "Hopper"
	ArchUnknown Architecture = "Unknown"
)
