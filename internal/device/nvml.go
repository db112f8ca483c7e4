package device

import (
	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/state"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlSurface implements Surface against the one physical device.
type nvmlSurface struct {
	device nvml.Device
}

// openNVML initializes the NVML library and claims the single
// supported device. Any device count other than one is a startup
// error: multi-GPU platforms are explicitly unsupported.
func openNVML() (Surface, error) {
	errFactory := errors.New()

	if ret := nvml.Init(); !isSuccess(ret) {
		return nil, errFactory.Wrap(errors.ErrInitFailed, &nvmlError{ret: ret}).
			WithMessage("Failed to initialize NVML")
	}

	count, ret := nvml.DeviceGetCount()
	if !isSuccess(ret) {
		nvml.Shutdown()
		return nil, devErr("Failed to get device count", ret)
	}
	if count != 1 {
		nvml.Shutdown()
		return nil, errFactory.WithData(errors.ErrDeviceCount, count)
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if !isSuccess(ret) {
		nvml.Shutdown()
		return nil, devErr("Failed to get device handle", ret)
	}

	return &nvmlSurface{device: device}, nil
}

func (s *nvmlSurface) Name() (string, error) {
	name, ret := s.device.GetName()
	if !isSuccess(ret) {
		return "", devErr("Failed to read GPU name", ret)
	}

	return name, nil
}

func (s *nvmlSurface) Architecture() (state.Architecture, error) {
	arch, ret := s.device.GetArchitecture()
	if !isSuccess(ret) {
		return state.ArchUnknown, devErr("Failed to read GPU architecture", ret)
	}

	switch arch {
	case nvml.DEVICE_ARCH_KEPLER:
		return state.ArchKepler, nil
	case nvml.DEVICE_ARCH_MAXWELL:
		return state.ArchMaxwell, nil
	case nvml.DEVICE_ARCH_PASCAL:
		return state.ArchPascal, nil
	case nvml.DEVICE_ARCH_VOLTA:
		return state.ArchVolta, nil
	case nvml.DEVICE_ARCH_TURING:
		return state.ArchTuring, nil
	case nvml.DEVICE_ARCH_AMPERE:
		return state.ArchAmpere, nil
	case nvml.DEVICE_ARCH_ADA:
		return state.ArchAda, nil
	case nvml.DEVICE_ARCH_HOPPER:
		return state.ArchHopper, nil
	default:
		return state.ArchUnknown, nil
	}
}

func (s *nvmlSurface) CoreCount() (int, error) {
	cores, ret := s.device.GetNumGpuCores()
	if !isSuccess(ret) {
		return 0, devErr("Failed to read GPU core count", ret)
	}

	return int(cores), nil
}

func (s *nvmlSurface) FanCount() (int, error) {
	count, ret := s.device.GetNumFans()
	if !isSuccess(ret) {
		return 0, devErr("Failed to read GPU fan count", ret)
	}

	return int(count), nil
}

func (s *nvmlSurface) SysInfo() (state.SysInfo, error) {
	driver, ret := nvml.SystemGetDriverVersion()
	if !isSuccess(ret) {
		return state.SysInfo{}, devErr("Failed to read driver version", ret)
	}

	nvmlVersion, ret := nvml.SystemGetNVMLVersion()
	if !isSuccess(ret) {
		return state.SysInfo{}, devErr("Failed to read NVML version", ret)
	}

	cudaVersion, ret := nvml.SystemGetCudaDriverVersion()
	if !isSuccess(ret) {
		return state.SysInfo{}, devErr("Failed to read CUDA driver version", ret)
	}

	ccMajor, ccMinor, ret := s.device.GetCudaComputeCapability()
	if !isSuccess(ret) {
		return state.SysInfo{}, devErr("Failed to read CUDA compute capability", ret)
	}

	return state.SysInfo{
		DriverVersion: driver,
		NVMLVersion:   nvmlVersion,
		CudaVersion: state.CudaVersion{
			Major: cudaVersion / 1000,
			Minor: (cudaVersion % 1000) / 10,
		},
		CudaCapability: state.CudaVersion{Major: ccMajor, Minor: ccMinor},
	}, nil
}

func (s *nvmlSurface) TempThresholds() (state.TempThresholds, error) {
	shutdown, ret := s.device.GetTemperatureThreshold(nvml.TEMPERATURE_THRESHOLD_SHUTDOWN)
	if !isSuccess(ret) {
		return state.TempThresholds{}, devErr("Failed to read GPU shutdown temperature", ret)
	}

	slowdown, ret := s.device.GetTemperatureThreshold(nvml.TEMPERATURE_THRESHOLD_SLOWDOWN)
	if !isSuccess(ret) {
		return state.TempThresholds{}, devErr("Failed to read GPU slowdown temperature", ret)
	}

	gpuMax, ret := s.device.GetTemperatureThreshold(nvml.TEMPERATURE_THRESHOLD_GPU_MAX)
	if !isSuccess(ret) {
		return state.TempThresholds{}, devErr("Failed to read GPU gpumax temperature", ret)
	}

	return state.TempThresholds{
		Shutdown: int(shutdown),
		Slowdown: int(slowdown),
		GpuMax:   int(gpuMax),
	}, nil
}

func (s *nvmlSurface) MinMaxFanSpeed() (state.MinMaxFanSpeeds, error) {
	minSpeed, maxSpeed, ret := s.device.GetMinMaxFanSpeed()
	if !isSuccess(ret) {
		return state.MinMaxFanSpeeds{}, devErr("Failed to read GPU min/max fan speeds", ret)
	}

	return state.MinMaxFanSpeeds{Min: int(minSpeed), Max: int(maxSpeed)}, nil
}

func (s *nvmlSurface) MaxPCIeLink() (state.PCIeLink, error) {
	gen, ret := s.device.GetMaxPcieLinkGeneration()
	if !isSuccess(ret) {
		return state.PCIeLink{}, devErr("Failed to read GPU max PCIe link generation", ret)
	}

	width, ret := s.device.GetMaxPcieLinkWidth()
	if !isSuccess(ret) {
		return state.PCIeLink{}, devErr("Failed to read GPU max PCIe link width", ret)
	}

	speed, ret := s.device.GetPcieLinkMaxSpeed()
	if !isSuccess(ret) {
		return state.PCIeLink{}, devErr("Failed to read GPU max PCIe link speed", ret)
	}

	return state.PCIeLink{Gen: int(gen), Width: int(width), SpeedMBps: maxLinkSpeedMBps(speed)}, nil
}

// maxLinkSpeedMBps converts the NVML max-speed enum into MB/s.
func maxLinkSpeedMBps(speed uint32) int {
	switch speed {
	case nvml.PCIE_LINK_MAX_SPEED_2500MBPS:
		return 2500
	case nvml.PCIE_LINK_MAX_SPEED_5000MBPS:
		return 5000
	case nvml.PCIE_LINK_MAX_SPEED_8000MBPS:
		return 8000
	case nvml.PCIE_LINK_MAX_SPEED_16000MBPS:
		return 16000
	case nvml.PCIE_LINK_MAX_SPEED_32000MBPS:
		return 32000
	case nvml.PCIE_LINK_MAX_SPEED_64000MBPS:
		return 64000
	default:
		return 0
	}
}

func (s *nvmlSurface) Temperature() (int, error) {
	temp, ret := s.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !isSuccess(ret) {
		return 0, devErr("Failed to read GPU temperature", ret)
	}

	return int(temp), nil
}

func (s *nvmlSurface) CurrentPCIeLink() (state.PCIeLink, error) {
	gen, ret := s.device.GetCurrPcieLinkGeneration()
	if !isSuccess(ret) {
		return state.PCIeLink{}, devErr("Failed to read GPU current PCIe link generation", ret)
	}

	width, ret := s.device.GetCurrPcieLinkWidth()
	if !isSuccess(ret) {
		return state.PCIeLink{}, devErr("Failed to read GPU current PCIe link width", ret)
	}

	speed, ret := s.device.GetPcieSpeed()
	if !isSuccess(ret) {
		return state.PCIeLink{}, devErr("Failed to read GPU current PCIe link speed", ret)
	}

	return state.PCIeLink{Gen: int(gen), Width: int(width), SpeedMBps: int(speed)}, nil
}

func (s *nvmlSurface) MemoryInfo() (state.MemoryInfo, error) {
	mem, ret := s.device.GetMemoryInfo()
	if !isSuccess(ret) {
		return state.MemoryInfo{}, devErr("Failed to read GPU memory info", ret)
	}

	return state.MemoryInfo{Free: mem.Free, Total: mem.Total, Used: mem.Used}, nil
}

func (s *nvmlSurface) PowerUsage() (float64, error) {
	milliwatts, ret := s.device.GetPowerUsage()
	if !isSuccess(ret) {
		return 0, devErr("Failed to read GPU power usage", ret)
	}

	return float64(milliwatts) / 1000.0, nil
}

func (s *nvmlSurface) ClockSpeeds() (state.ClockSpeeds, error) {
	memory, ret := s.device.GetClockInfo(nvml.CLOCK_MEM)
	if !isSuccess(ret) {
		return state.ClockSpeeds{}, devErr("Failed to read GPU memory clock", ret)
	}

	graphics, ret := s.device.GetClockInfo(nvml.CLOCK_GRAPHICS)
	if !isSuccess(ret) {
		return state.ClockSpeeds{}, devErr("Failed to read GPU graphics clock", ret)
	}

	video, ret := s.device.GetClockInfo(nvml.CLOCK_VIDEO)
	if !isSuccess(ret) {
		return state.ClockSpeeds{}, devErr("Failed to read GPU video clock", ret)
	}

	sm, ret := s.device.GetClockInfo(nvml.CLOCK_SM)
	if !isSuccess(ret) {
		return state.ClockSpeeds{}, devErr("Failed to read GPU SM clock", ret)
	}

	return state.ClockSpeeds{
		Memory:                  int(memory),
		Graphics:                int(graphics),
		Video:                   int(video),
		StreamingMultiprocessor: int(sm),
	}, nil
}

func (s *nvmlSurface) FanSpeed(index int) (int, error) {
	speed, ret := s.device.GetFanSpeed_v2(index)
	if !isSuccess(ret) {
		return 0, devErr("Failed to read fan speed", ret)
	}

	return int(speed), nil
}

func (s *nvmlSurface) TargetFanSpeed(index int) (int, error) {
	target, ret := s.device.GetTargetFanSpeed(index)
	if !isSuccess(ret) {
		return 0, devErr("Failed to read fan target duty", ret)
	}

	return int(target), nil
}

func (s *nvmlSurface) FanControlPolicy(index int) (state.FanPolicy, error) {
	policy, ret := s.device.GetFanControlPolicy_v2(index)
	if !isSuccess(ret) {
		return state.PolicyUnknown, devErr("Failed to read fan control policy", ret)
	}

	switch policy {
	case nvml.FAN_POLICY_TEMPERATURE_CONTINOUS_SW:
		return state.PolicyAutomatic, nil
	case nvml.FAN_POLICY_MANUAL:
		return state.PolicyManual, nil
	default:
		return state.PolicyUnknown, nil
	}
}

func (s *nvmlSurface) SetFanSpeed(index, duty int) error {
	if ret := nvml.DeviceSetFanSpeed_v2(s.device, index, duty); !isSuccess(ret) {
		return devErr("Failed to set fan speed", ret)
	}

	return nil
}

func (s *nvmlSurface) SetAutoFanPolicy(index int) error {
	if ret := nvml.DeviceSetDefaultFanSpeed_v2(s.device, index); !isSuccess(ret) {
		return devErr("Failed to set automatic fan policy", ret)
	}

	return nil
}

func (s *nvmlSurface) Close() error {
	if ret := nvml.Shutdown(); !isSuccess(ret) {
		return devErr("Failed to shut down NVML", ret)
	}

	return nil
}
