package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nudged.pid")

	require.NoError(t, Acquire(path))
	pid, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, got, err := IsRunning(path)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), got)

	require.NoError(t, Release(path))
	assert.NoFileExists(t, path)
	require.NoError(t, Release(path))
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nudged.pid")
	// PIDs above the kernel's pid_max are never alive.
	require.NoError(t, os.WriteFile(path, []byte("99999999\n"), 0644))

	require.NoError(t, Acquire(path))
	pid, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestReleaseKeepsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nudged.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid()+1)), 0644))

	require.NoError(t, Release(path))
	assert.FileExists(t, path)
}

func TestIsRunningWithoutFile(t *testing.T) {
	running, pid, err := IsRunning(filepath.Join(t.TempDir(), "missing.pid"))
	require.NoError(t, err)
	assert.False(t, running)
	assert.Zero(t, pid)

	stopped, err := Stop(filepath.Join(t.TempDir(), "missing.pid"), 0)
	require.NoError(t, err)
	assert.False(t, stopped)
}

func TestReadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nudged.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))
	_, err := Read(path)
	assert.Error(t, err)
}
