// Package pidfile manages the nudge daemon's PID file.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/pkg/process"
)

// Acquire writes the current PID to the file.
// It returns an error if another instance is already running. A file left
// behind by a dead process is replaced.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create pid directory").WithDetail("path", path)
	}

	if pid, err := Read(path); err == nil {
		if pid != os.Getpid() && process.IsProcessAlive(pid) {
			return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("daemon already running with PID %d", pid)).
				WithDetail("pid", pid).
				WithDetail("path", path)
		}
		// Process is dead, cleanup stale file
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.New(errors.ErrCodeInvalidInput, "another daemon is starting").WithDetail("path", path)
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write pid file").WithDetail("path", path)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		_ = os.Remove(path)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write pid file").WithDetail("path", path)
	}
	return nil
}

// Release removes the PID file if it still belongs to this process.
func Release(path string) error {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read returns the PID stored in the file.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed pid file").WithDetail("path", path)
	}
	return pid, nil
}

// IsRunning checks if the daemon described by the pidfile is active.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return process.IsProcessAlive(pid), pid, nil
}

// Stop sends SIGTERM to the daemon and waits up to timeout for it to exit.
// It reports whether a daemon was running.
func Stop(path string, timeout time.Duration) (bool, error) {
	running, pid, err := IsRunning(path)
	if err != nil || !running {
		return false, err
	}

	if err := process.Terminate(pid); err != nil {
		return true, errors.Wrap(err, errors.ErrCodeInternal, "failed to send stop signal").WithDetail("pid", pid)
	}
	if !process.WaitForExit(pid, timeout) {
		return true, errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon (PID %d) did not exit within %s", pid, timeout)).
			WithDetail("pid", pid)
	}
	return true, nil
}
