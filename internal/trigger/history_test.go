package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqs(ts []Transition) []uint64 {
	out := make([]uint64, len(ts))
	for i, t := range ts {
		out[i] = t.Seq
	}
	return out
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := uint64(1); i <= 5; i++ {
		h.Append(Transition{Seq: i})
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []uint64{5, 4, 3}, seqs(h.Recent(0)))
	assert.Equal(t, []uint64{5}, seqs(h.Recent(1)))
	assert.Equal(t, []uint64{5, 4, 3}, seqs(h.Recent(10)))
}

func TestHistoryBeforeFull(t *testing.T) {
	h := NewHistory(4)
	assert.Empty(t, h.Recent(0))

	h.Append(Transition{Seq: 1})
	h.Append(Transition{Seq: 2})
	require.Equal(t, 2, h.Len())
	assert.Equal(t, []uint64{2, 1}, seqs(h.Recent(-1)))
}

func TestHistoryDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(0).Cap())
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(-5).Cap())
}

func TestParseEventKindAliases(t *testing.T) {
	tests := map[string]EventKind{
		"activity":               EventActivityDetected,
		"idle_threshold_crossed": EventIdleThresholdCrossed,
		"Opportunity":            EventOpportunityDetected,
		"present":                EventCandidatePresented,
		"accept":                 EventAccept,
		"cooldown":               EventEnterCooldown,
		"expire":                 EventCooldownExpired,
		" pause ":                EventPauseRequested,
		"resume":                 EventResumeRequested,
		"pause_elapsed":          EventPauseElapsed,
	}
	for in, want := range tests {
		got, err := ParseEventKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseEventKind("explode")
	assert.Error(t, err)
}

func TestModeRoundTripsAsText(t *testing.T) {
	for m := ModeIdle; m <= ModePaused; m++ {
		text, err := m.MarshalText()
		require.NoError(t, err)
		var back Mode
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}
}
