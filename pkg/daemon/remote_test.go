package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/nudge/config"
	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/grovetools/nudge/internal/daemon/engine"
	"github.com/grovetools/nudge/internal/daemon/server"
	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/internal/trust"
	"github.com/grovetools/nudge/pkg/daemon"
	"github.com/grovetools/nudge/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDaemon serves a fresh engine on a unix socket and returns a connected client.
func startDaemon(t *testing.T) (*daemon.RemoteClient, *engine.Engine) {
	t.Helper()
	home := testutil.IsolateHome(t)
	logger := testutil.QuietLogger()

	eng := engine.New(config.Default(), clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)), store.New(), logger)
	srv := server.New(eng, logger)
	sock := testutil.SocketPath(home)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(sock) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-errCh
	})

	require.Eventually(t, func() bool { return daemon.IsRunning(sock) }, 2*time.Second, 10*time.Millisecond)
	client, err := daemon.Connect(sock)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, eng
}

func TestConnectWithoutDaemon(t *testing.T) {
	_, err := daemon.Connect(filepath.Join(t.TempDir(), "absent.sock"))
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonUnavailable))
	assert.False(t, daemon.IsRunning(filepath.Join(t.TempDir(), "absent.sock")))
}

func TestRemoteClientRoundTrip(t *testing.T) {
	client, _ := startDaemon(t)
	ctx := context.Background()

	h, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), h.PID)

	st, err := client.Submit(ctx, trigger.IdleThresholdCrossed())
	require.NoError(t, err)
	assert.Equal(t, trigger.ModeArmed, st.Mode)

	_, err = client.Submit(ctx, trigger.Accept())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition))
	ne := errors.As(err)
	require.NotNil(t, ne)
	assert.Equal(t, "armed", ne.Details["state"])

	d, err := client.Decision(ctx)
	require.NoError(t, err)
	assert.Equal(t, trigger.ModeArmed, d.State.Mode)
	assert.False(t, d.MayPresent)

	hist, err := client.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)

	require.NoError(t, client.ObserveOSIdle(ctx, 2*time.Second))
	snap, err := client.Idle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, snap.OSIdle)

	fb, err := client.Feedback(ctx, "", trust.OutcomePositive)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultContext, fb.ContextKey)

	entry, err := client.TrustFor(ctx, config.DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Metrics.Positive)

	require.NoError(t, client.ResetMetrics(ctx, config.DefaultContext))
	entries, err := client.Trust(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].Metrics.Total)

	rc, err := client.RunningConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.InstanceID, rc.InstanceID)
	assert.Equal(t, "12s", rc.IdleThreshold)
}

func TestRemoteClientStream(t *testing.T) {
	client, eng := startDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := client.Stream(ctx)
	require.NoError(t, err)

	next := func() daemon.StreamUpdate {
		t.Helper()
		select {
		case u, ok := <-updates:
			require.True(t, ok, "stream closed")
			return u
		case <-time.After(2 * time.Second):
			t.Fatal("no update")
		}
		return daemon.StreamUpdate{}
	}

	assert.Equal(t, daemon.UpdateInitial, next().UpdateType)

	_, err = eng.Submit(trigger.PauseRequested(nil))
	require.NoError(t, err)
	u := next()
	assert.Equal(t, daemon.UpdateTransition, u.UpdateType)
	require.NotNil(t, u.Transition)
	assert.Equal(t, trigger.ModePaused, u.Transition.To.Mode)
}

func TestTrustKeyWithSlash(t *testing.T) {
	client, _ := startDaemon(t)
	entry, err := client.TrustFor(context.Background(), "repo/main.go")
	require.NoError(t, err)
	assert.Equal(t, "repo/main.go", entry.ContextKey)
}
