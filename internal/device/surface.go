package device

import "codeberg.org/isvind/gpufanctl/internal/state"

// Surface is the set of query and command operations the daemon may
// invoke against the physical device. Every call is independently
// fallible. The production implementation sits on NVML; tests provide
// their own.
//
// Calls are not reentrant. The Session serializes access; nothing else
// may hold a Surface.
type Surface interface {
	Name() (string, error)
	Architecture() (state.Architecture, error)
	CoreCount() (int, error)
	FanCount() (int, error)
	SysInfo() (state.SysInfo, error)
	TempThresholds() (state.TempThresholds, error)
	MinMaxFanSpeed() (state.MinMaxFanSpeeds, error)
	MaxPCIeLink() (state.PCIeLink, error)

	Temperature() (int, error)
	CurrentPCIeLink() (state.PCIeLink, error)
	MemoryInfo() (state.MemoryInfo, error)
	PowerUsage() (float64, error)
	ClockSpeeds() (state.ClockSpeeds, error)
	FanSpeed(index int) (int, error)
	TargetFanSpeed(index int) (int, error)
	FanControlPolicy(index int) (state.FanPolicy, error)

	SetFanSpeed(index, duty int) error
	SetAutoFanPolicy(index int) error

	Close() error
}
