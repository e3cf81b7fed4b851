package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/pkg/paths"
)

// Connect returns a client for the daemon listening on socketPath, or on the
// default socket when socketPath is empty. Unlike a plain NewRemoteClient it
// fails fast with DAEMON_UNAVAILABLE when nothing is listening.
func Connect(socketPath string) (*RemoteClient, error) {
	if socketPath == "" {
		socketPath = paths.SocketPath()
	}
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errors.DaemonUnavailable(socketPath, err)
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return nil, errors.DaemonUnavailable(socketPath, err)
	}
	conn.Close()
	return NewRemoteClient(socketPath)
}

// IsRunning reports whether a daemon answers on socketPath.
func IsRunning(socketPath string) bool {
	client, err := Connect(socketPath)
	if err != nil {
		return false
	}
	defer client.Close()
	return client.IsRunning()
}
