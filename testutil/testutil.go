// Package testutil holds helpers shared by nudge's package tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// IsolateHome points NUDGE_HOME at a fresh directory short enough to hold a
// unix socket path, and removes it when the test ends.
func IsolateHome(t *testing.T) string {
	t.Helper()

	// t.TempDir paths can exceed the sun_path limit on macOS.
	home, err := os.MkdirTemp("", "nudge")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(home) })
	t.Setenv("NUDGE_HOME", home)
	return home
}

// SocketPath returns a unique socket path inside dir.
func SocketPath(dir string) string {
	return filepath.Join(dir, "nudged-"+RandomString(6)+".sock")
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// QuietLogger returns a logger that drops everything below panic.
func QuietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// RandomString returns a hex string of the given length.
func RandomString(length int) string {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)[:length]
}
