package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrMissingConfig ErrorCode = "missing_configuration"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Initialization and lifecycle errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Fan curve errors
	ErrInvalidCurve   ErrorCode = "invalid_fan_curve"
	ErrCurveInvariant ErrorCode = "fan_curve_invariant_violation"

	// Device errors
	ErrDeviceCount      ErrorCode = "device_count_unsupported"
	ErrDeviceCall       ErrorCode = "device_call_failed"
	ErrDeviceProbe      ErrorCode = "device_probe_failed"
	ErrSensorAnomaly    ErrorCode = "temperature_out_of_range"
	ErrRestorePolicy    ErrorCode = "restore_fan_policy_failed"
	ErrSnapshotRead     ErrorCode = "snapshot_read_failed"
	ErrControlStep      ErrorCode = "control_step_failed"
	ErrControlLoopFault ErrorCode = "control_loop_fault"

	// Server errors
	ErrSocketBind   ErrorCode = "socket_bind_failed"
	ErrSocketRemove ErrorCode = "socket_remove_failed"
	ErrServerServe  ErrorCode = "server_serve_failed"

	// Telemetry errors
	ErrTelemetryInit   ErrorCode = "telemetry_init_failed"
	ErrTelemetryRecord ErrorCode = "telemetry_record_failed"
	ErrTelemetryClose  ErrorCode = "telemetry_close_failed"

	// Monitor errors
	ErrMonitorProbe ErrorCode = "monitor_probe_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrInvalidConfig:    "Invalid configuration",
	ErrMissingConfig:    "Missing configuration",
	ErrReadConfig:       "Failed to read configuration",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInvalidCurve:     "Invalid fan curve",
	ErrCurveInvariant:   "Compiled fan curve failed validation",
	ErrDeviceCount:      "Expected exactly one GPU device",
	ErrDeviceCall:       "Device call failed",
	ErrDeviceProbe:      "Device probe failed",
	ErrSensorAnomaly:    "Device temperature outside representable range",
	ErrRestorePolicy:    "Failed to restore automatic fan policy",
	ErrSnapshotRead:     "Failed to read device snapshot",
	ErrControlStep:      "Control step failed",
	ErrControlLoopFault: "Control loop entered fault state",
	ErrSocketBind:       "Failed to bind control socket",
	ErrSocketRemove:     "Failed to remove control socket",
	ErrServerServe:      "Snapshot server failed",
	ErrTelemetryInit:    "Failed to initialize telemetry",
	ErrTelemetryRecord:  "Failed to record telemetry sample",
	ErrTelemetryClose:   "Failed to close telemetry store",
	ErrMonitorProbe:     "Failed to probe daemon state",
}

// messageFor returns the default message for a given error code.
func messageFor(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
