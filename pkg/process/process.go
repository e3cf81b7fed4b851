// Package process inspects and signals other processes by PID.
package process

import (
	"os"
	"syscall"
	"time"
)

// IsProcessAlive checks if a process with the given PID is still running.
// Signal 0 probes for existence without delivering anything; EPERM still
// means the process exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// Never fails on Unix, even for a missing process.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Terminate sends SIGTERM to pid.
func Terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

// WaitForExit polls until pid is gone or timeout elapses. It reports whether
// the process exited.
func WaitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !IsProcessAlive(pid) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}
