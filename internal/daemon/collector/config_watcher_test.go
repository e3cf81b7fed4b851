package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcherReportsEdits(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nudge.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version: \"1.0\"\n"), 0644))

	w := NewConfigWatcher([]string{cfgPath}, 10*time.Millisecond, quietLogger())
	assert.Equal(t, "config-watcher", w.Name())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan store.Update, 10)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, updates) }()

	// Unrelated files in the same directory are ignored.
	other := filepath.Join(dir, "notes.txt")

	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
		require.NoError(t, os.WriteFile(cfgPath, []byte("version: \"1.0\"\ntrigger:\n  idle_threshold: 5s\n"), 0644))
		select {
		case u := <-updates:
			assert.Equal(t, store.UpdateConfigChanged, u.Type)
			assert.Equal(t, "config", u.Source)
			assert.Equal(t, cfgPath, u.Payload)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-time.After(50 * time.Millisecond):
			// The watch may not be registered yet; write again.
		case <-deadline:
			t.Fatal("no config_changed update received")
		}
	}
}

func TestConfigWatcherWithoutFilesIdles(t *testing.T) {
	w := NewConfigWatcher(nil, 0, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, make(chan store.Update)) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestShouldReportDebounces(t *testing.T) {
	w := NewConfigWatcher(nil, 100*time.Millisecond, quietLogger())
	now := time.Now()
	assert.True(t, w.shouldReport("a", now))
	assert.False(t, w.shouldReport("a", now.Add(50*time.Millisecond)))
	assert.True(t, w.shouldReport("b", now.Add(50*time.Millisecond)))
	assert.True(t, w.shouldReport("a", now.Add(200*time.Millisecond)))
}
