// Package paths provides XDG-compliant path resolution for nudge.
//
// Resolution order:
// 1. NUDGE_HOME (portable root) → $NUDGE_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/nudge
// 3. Platform defaults → ~/.config/nudge, ~/.local/state/nudge
package paths

import (
	"os"
	"path/filepath"
)

const appName = "nudge"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("NUDGE_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("NUDGE_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the nudge configuration directory.
// Used for the global nudge.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	if os.Getenv("NUDGE_HOME") != "" {
		return base
	}
	return filepath.Join(base, appName)
}

// StateDir returns the nudge state directory.
// Used for the PID file and logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	if os.Getenv("NUDGE_HOME") != "" {
		return base
	}
	return filepath.Join(base, appName)
}

// LogDir returns the directory daemon and CLI logs are written to.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the directory for the daemon socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if home := os.Getenv("NUDGE_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the path to the daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "nudged.sock")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "nudged.pid")
}

// EnsureDirs creates all nudge directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
