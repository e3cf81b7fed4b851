package idle

import (
	"testing"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestSnapshotWithoutOSReading(t *testing.T) {
	clk := clock.NewFake(epoch)
	tr := NewTracker(clk)

	clk.Advance(12 * time.Second)
	snap := tr.Snapshot()

	assert.Equal(t, 12*time.Second, snap.LocalIdle)
	assert.Equal(t, snap.LocalIdle, snap.OSIdle)
	assert.Equal(t, 12*time.Second, snap.EffectiveIdle)
	assert.Equal(t, ActivityUnknown, snap.LastActivityKind)
}

func TestResetRecordsKind(t *testing.T) {
	clk := clock.NewFake(epoch)
	tr := NewTracker(clk)

	clk.Advance(time.Minute)
	tr.Reset(ActivityScroll)
	clk.Advance(3 * time.Second)

	snap := tr.Snapshot()
	assert.Equal(t, 3*time.Second, snap.LocalIdle)
	assert.Equal(t, ActivityScroll, snap.LastActivityKind)
}

func TestEffectiveIsMinimumOfClocks(t *testing.T) {
	clk := clock.NewFake(epoch)
	tr := NewTracker(clk)

	// OS says the user was active elsewhere 2s ago while this process saw nothing for 20s.
	clk.Advance(20 * time.Second)
	tr.ObserveOSIdle(2 * time.Second)
	snap := tr.Snapshot()
	assert.Equal(t, 2*time.Second, snap.OSIdle)
	assert.Equal(t, 20*time.Second, snap.LocalIdle)
	assert.Equal(t, 2*time.Second, snap.EffectiveIdle)

	// A stale OS reading does not outvote local activity.
	tr.ObserveOSIdle(10 * time.Minute)
	tr.Reset(ActivityKeyboard)
	clk.Advance(time.Second)
	snap = tr.Snapshot()
	assert.Equal(t, time.Second, snap.LocalIdle)
	assert.Equal(t, 10*time.Minute+time.Second, snap.OSIdle)
	assert.Equal(t, time.Second, snap.EffectiveIdle)
}

func TestSnapshotNeverNegative(t *testing.T) {
	clk := clock.NewFake(epoch)
	tr := NewTracker(clk)

	tr.ObserveOSIdle(-5 * time.Second)
	// A clock that moves backwards must not produce negative idle time.
	clk.Set(epoch.Add(-time.Minute))

	steps := []func(){
		func() { tr.Reset(ActivityMouse) },
		func() { clk.Advance(7 * time.Second) },
		func() { tr.ObserveOSIdle(time.Second) },
		func() { clk.Set(epoch.Add(-2 * time.Hour)) },
		func() { clk.Advance(time.Hour) },
	}
	for i, step := range steps {
		step()
		snap := tr.Snapshot()
		assert.GreaterOrEqual(t, snap.OSIdle, time.Duration(0), "step %d", i)
		assert.GreaterOrEqual(t, snap.LocalIdle, time.Duration(0), "step %d", i)
		assert.GreaterOrEqual(t, snap.EffectiveIdle, time.Duration(0), "step %d", i)
		assert.Equal(t, minDuration(snap.OSIdle, snap.LocalIdle), snap.EffectiveIdle, "step %d", i)
	}
}

func TestParseActivityKind(t *testing.T) {
	tests := []struct {
		in   string
		want ActivityKind
	}{
		{"keyboard", ActivityKeyboard},
		{"Mouse", ActivityMouse},
		{" scroll ", ActivityScroll},
		{"", ActivityUnknown},
		{"unknown", ActivityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseActivityKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseActivityKind("touchpad")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	var k ActivityKind
	require.NoError(t, k.UnmarshalText([]byte("keyboard")))
	assert.Equal(t, ActivityKeyboard, k)
	text, err := ActivityMouse.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "mouse", string(text))
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
