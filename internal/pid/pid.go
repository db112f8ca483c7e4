// Package pid guards against a second daemon instance via a pid file,
// complementing the socket-bind check.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/isvind/gpufanctl/internal/errors"
)

const pidFile = "gpufanctl.pid"

func path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to the pid file. If the file
// names a live process, startup is refused.
func Write() error {
	errFactory := errors.New()

	if bytes, err := os.ReadFile(path()); err == nil {
		oldPid, err := strconv.Atoi(string(bytes))
		if err == nil {
			if process, err := os.FindProcess(oldPid); err == nil {
				if process.Signal(syscall.Signal(0)) == nil {
					return errFactory.WithData(errors.ErrAlreadyRunning, oldPid)
				}
			}
		}
		// Stale file from a dead process; overwrite it.
	}

	if err := os.WriteFile(path(), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the pid file.
func Remove() error {
	errFactory := errors.New()

	if err := os.Remove(path()); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
