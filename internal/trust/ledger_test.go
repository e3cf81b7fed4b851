package trust

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/grovetools/nudge/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositiveSequenceFromHalf(t *testing.T) {
	l := NewLedger(0.1, 0.5)

	want := []float64{0.55, 0.595, 0.6355}
	for i, w := range want {
		got, err := l.Record("editor", OutcomePositive)
		require.NoError(t, err)
		assert.InDelta(t, w, got, 1e-9, "step %d", i)
	}
}

func TestNegativeAndNeutral(t *testing.T) {
	l := NewLedger(0.1, 0.5)

	got, err := l.Record("k", OutcomeNegative)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got, 1e-9)

	got, err = l.Record("k", OutcomeNeutral)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got, 1e-9, "neutral must not move the score")

	m := l.Metrics("k")
	assert.Equal(t, Metrics{Negative: 1, Neutral: 1, Total: 2, SuccessRate: 0}, m)
}

func TestInvalidOutcomeLeavesLedgerUntouched(t *testing.T) {
	l := NewLedger(0.1, 0.3)

	_, err := l.Record("k", OutcomeInvalid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOutcome))

	_, err = l.Record("k", Outcome(42))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOutcome))

	score, err := l.Score("k")
	require.NoError(t, err)
	assert.Equal(t, 0.3, score)
	assert.Equal(t, Metrics{}, l.Metrics("k"))
}

func TestScoreAlwaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	outcomes := []Outcome{OutcomePositive, OutcomeNegative, OutcomeNeutral}

	for _, alpha := range []float64{0.1, 0.5, 1.0} {
		l := NewLedger(alpha, 0)
		for i := 0; i < 2000; i++ {
			got, err := l.Record("k", outcomes[rng.Intn(len(outcomes))])
			require.NoError(t, err)
			require.GreaterOrEqual(t, got, 0.0)
			require.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestSuccessRateAndReset(t *testing.T) {
	l := NewLedger(0.1, 0)
	for _, o := range []Outcome{OutcomePositive, OutcomePositive, OutcomeNegative, OutcomeNeutral} {
		_, err := l.Record("ide", o)
		require.NoError(t, err)
	}

	m := l.Metrics("ide")
	assert.Equal(t, 4, m.Total)
	assert.InDelta(t, 0.5, m.SuccessRate, 1e-9)

	before, _ := l.Score("ide")
	l.ResetMetrics("ide")
	assert.Equal(t, Metrics{}, l.Metrics("ide"))
	after, _ := l.Score("ide")
	assert.Equal(t, before, after, "resetting metrics must not touch the score")
}

func TestTrustOutOfRangeSurfaced(t *testing.T) {
	l := NewLedger(0.1, math.NaN())

	_, err := l.Score("k")
	assert.True(t, errors.Is(err, errors.ErrCodeTrustOutOfRange))

	_, err = l.Record("k", OutcomePositive)
	assert.True(t, errors.Is(err, errors.ErrCodeTrustOutOfRange))
}

func TestNewLedgerDefaults(t *testing.T) {
	assert.Equal(t, DefaultSmoothing, NewLedger(0, 0).Alpha())
	assert.Equal(t, DefaultSmoothing, NewLedger(3, 0).Alpha())

	l := NewLedger(0.2, 7)
	score, err := l.Score("fresh")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestSnapshotSorted(t *testing.T) {
	l := NewLedger(0.1, 0)
	for _, k := range []string{"terminal", "browser", "editor"} {
		_, err := l.Record(k, OutcomePositive)
		require.NoError(t, err)
	}

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "browser", snap[0].ContextKey)
	assert.Equal(t, "editor", snap[1].ContextKey)
	assert.Equal(t, "terminal", snap[2].ContextKey)
	assert.InDelta(t, 0.1, snap[0].Score, 1e-9)
	assert.Equal(t, 1, snap[0].Metrics.Positive)
}

func TestConcurrentKeys(t *testing.T) {
	l := NewLedger(0.1, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("ctx-%d", i%4)
			for j := 0; j < 250; j++ {
				_, _ = l.Record(key, OutcomePositive)
			}
		}(i)
	}
	wg.Wait()

	for _, e := range l.Snapshot() {
		assert.Equal(t, 500, e.Metrics.Total, e.ContextKey)
		assert.LessOrEqual(t, e.Score, 1.0)
	}
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in      string
		want    Outcome
		wantErr bool
	}{
		{"positive", OutcomePositive, false},
		{"Accept", OutcomePositive, false},
		{"negative", OutcomeNegative, false},
		{"dismissed", OutcomeNegative, false},
		{"neutral", OutcomeNeutral, false},
		{"", OutcomeInvalid, true},
		{"great", OutcomeInvalid, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutcome(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrCodeInvalidOutcome))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
