package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNudgeHomeOverridesXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("NUDGE_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "/should/not/be/used")
	t.Setenv("XDG_RUNTIME_DIR", "/should/not/be/used")

	assert.Equal(t, filepath.Join(home, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state"), StateDir())
	assert.Equal(t, filepath.Join(home, "state", "logs"), LogDir())
	assert.Equal(t, filepath.Join(home, "run", "nudged.sock"), SocketPath())
	assert.Equal(t, filepath.Join(home, "state", "nudged.pid"), PidFilePath())

	require.NoError(t, EnsureDirs())
	assert.DirExists(t, LogDir())
	assert.DirExists(t, RuntimeDir())
}

func TestXDGLocations(t *testing.T) {
	t.Setenv("NUDGE_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, "/xdg/config/nudge", ConfigDir())
	assert.Equal(t, "/xdg/state/nudge", StateDir())
	assert.Equal(t, "/run/user/1000/nudge/nudged.sock", SocketPath())
}
