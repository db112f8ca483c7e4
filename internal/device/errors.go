package device

import (
	"codeberg.org/isvind/gpufanctl/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlError carries the raw NVML return code.
type nvmlError struct {
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// devErr wraps an NVML failure with the human-readable name of the
// failed operation, so error chains stay diagnosable.
func devErr(operation string, ret nvml.Return) error {
	return errors.New().
		Wrap(errors.ErrDeviceCall, &nvmlError{ret: ret}).
		WithMessage(operation)
}

func isSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}
