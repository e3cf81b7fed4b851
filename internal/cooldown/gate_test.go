package cooldown

import (
	"testing"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestGate() *Gate {
	return NewGate(Durations{Accept: 30 * time.Second, Dismiss: 90 * time.Second})
}

func TestEnterDurationsPerReason(t *testing.T) {
	g := newTestGate()

	w, err := g.Enter(ReasonUserDismissed, t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(90*time.Second), w.ExpiresAt)
	assert.Equal(t, t0, w.StartedAt)

	w, err = g.Enter(ReasonSystemBackoff, t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(30*time.Second), w.ExpiresAt)
}

func TestEnterInvalidReason(t *testing.T) {
	g := newTestGate()
	_, err := g.Enter(ReasonInvalid, t0)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, ok := g.Current()
	assert.False(t, ok, "a rejected Enter must not store a window")
}

func TestIsExpiredBoundary(t *testing.T) {
	g := newTestGate()
	w, err := g.Enter(ReasonUserDismissed, t0)
	require.NoError(t, err)

	assert.False(t, g.IsExpired(w, t0.Add(89*time.Second)))
	assert.True(t, g.IsExpired(w, t0.Add(90*time.Second)))
	assert.True(t, g.IsExpired(w, t0.Add(91*time.Second)))
}

func TestReenterReplacesWindow(t *testing.T) {
	g := newTestGate()
	_, err := g.Enter(ReasonUserDismissed, t0)
	require.NoError(t, err)

	// A second dismissal 60s in restarts a full window rather than stacking.
	later := t0.Add(60 * time.Second)
	w, err := g.Enter(ReasonUserDismissed, later)
	require.NoError(t, err)
	assert.Equal(t, later.Add(90*time.Second), w.ExpiresAt)

	// Switching reason takes the new reason's duration, even if shorter.
	w, err = g.Enter(ReasonSystemBackoff, later)
	require.NoError(t, err)
	assert.Equal(t, later.Add(30*time.Second), w.ExpiresAt)

	cur, ok := g.Current()
	require.True(t, ok)
	assert.Equal(t, w, cur)
}

func TestActiveRemainingClear(t *testing.T) {
	g := newTestGate()
	assert.Zero(t, g.Remaining(t0))

	_, err := g.Enter(ReasonSystemBackoff, t0)
	require.NoError(t, err)

	_, ok := g.Active(t0.Add(10 * time.Second))
	assert.True(t, ok)
	assert.Equal(t, 20*time.Second, g.Remaining(t0.Add(10*time.Second)))

	_, ok = g.Active(t0.Add(30 * time.Second))
	assert.False(t, ok)
	assert.Zero(t, g.Remaining(t0.Add(31*time.Second)))

	g.Clear()
	_, ok = g.Current()
	assert.False(t, ok)
}

func TestParseReason(t *testing.T) {
	r, err := ParseReason("user_dismissed")
	require.NoError(t, err)
	assert.Equal(t, ReasonUserDismissed, r)

	r, err = ParseReason("")
	require.NoError(t, err)
	assert.Equal(t, ReasonSystemBackoff, r)

	_, err = ParseReason("forever")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	text, err := ReasonSystemBackoff.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "system_backoff", string(text))
}
