package trigger

import (
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/grovetools/nudge/internal/cooldown"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

const (
	acceptCooldown  = 30 * time.Second
	dismissCooldown = 90 * time.Second
)

type fixture struct {
	clk     *clock.Fake
	tracker *idle.Tracker
	gate    *cooldown.Gate
	ledger  *trust.Ledger
	m       *Machine
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	clk := clock.NewFake(t0)
	f := &fixture{
		clk:     clk,
		tracker: idle.NewTracker(clk),
		gate:    cooldown.NewGate(cooldown.Durations{Accept: acceptCooldown, Dismiss: dismissCooldown}),
		ledger:  trust.NewLedger(0.1, 0.5),
	}
	f.m = New(Config{HistoryCapacity: capacity}, clk, f.tracker, f.gate, f.ledger, nil)
	return f
}

func (f *fixture) submit(t *testing.T, ev Event) State {
	t.Helper()
	s, err := f.m.Submit(ev)
	require.NoError(t, err, "submit %s", ev)
	return s
}

// toAwaiting drives the machine from Idle to AwaitingResponse.
func (f *fixture) toAwaiting(t *testing.T, candidate, context string) {
	t.Helper()
	f.submit(t, IdleThresholdCrossed())
	f.submit(t, OpportunityDetected(candidate, context))
	f.submit(t, CandidatePresented())
}

func TestHappyPathAccept(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, ModeArmed, f.submit(t, IdleThresholdCrossed()).Mode)
	assert.Equal(t, ModeCandidateReady, f.submit(t, OpportunityDetected("c-1", "editor")).Mode)

	d, err := f.m.Decision()
	require.NoError(t, err)
	assert.True(t, d.MayPresent)
	assert.Equal(t, "c-1", d.CandidateID)
	assert.Equal(t, "editor", d.ContextKey)

	assert.Equal(t, ModeAwaitingResponse, f.submit(t, CandidatePresented()).Mode)
	d, err = f.m.Decision()
	require.NoError(t, err)
	assert.False(t, d.MayPresent)

	s := f.submit(t, Accept())
	assert.Equal(t, ModeIdle, s.Mode)
	assert.Nil(t, s.Cooldown)

	_, active := f.gate.Active(f.clk.Now())
	assert.False(t, active, "accept must not leave a cooldown window")

	score, err := f.ledger.Score("editor")
	require.NoError(t, err)
	assert.InDelta(t, 0.55, score, 1e-9)
}

func TestDismissEntersUserCooldown(t *testing.T) {
	f := newFixture(t, 0)
	f.toAwaiting(t, "c-1", "")

	s := f.submit(t, Dismiss())
	require.Equal(t, ModeCooldown, s.Mode)
	require.NotNil(t, s.Cooldown)
	assert.Equal(t, cooldown.ReasonUserDismissed, s.Cooldown.Reason)
	assert.Equal(t, t0.Add(dismissCooldown), s.Cooldown.ExpiresAt)

	score, err := f.ledger.Score(DefaultContext)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, score, 1e-9)

	d, err := f.m.Decision()
	require.NoError(t, err)
	assert.Equal(t, dismissCooldown, d.CooldownRemaining)
}

// Dismiss cooldown of 90s entered at t=0: CooldownExpired fails at 89s and succeeds at 91s.
func TestCooldownExpiryBoundary(t *testing.T) {
	f := newFixture(t, 0)
	f.toAwaiting(t, "c-1", "")
	f.submit(t, Dismiss())

	f.clk.Advance(89 * time.Second)
	s, err := f.m.Submit(CooldownExpired())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition))
	assert.Equal(t, ModeCooldown, s.Mode)

	f.clk.Advance(2 * time.Second)
	s = f.submit(t, CooldownExpired())
	assert.Equal(t, ModeIdle, s.Mode)
	_, ok := f.gate.Current()
	assert.False(t, ok, "expiry clears the window")
}

func TestSystemBackoffAndRefresh(t *testing.T) {
	f := newFixture(t, 0)
	f.toAwaiting(t, "c-1", "")

	s := f.submit(t, EnterCooldown(cooldown.ReasonSystemBackoff))
	assert.Equal(t, cooldown.ReasonSystemBackoff, s.Cooldown.Reason)
	assert.Equal(t, t0.Add(acceptCooldown), s.Cooldown.ExpiresAt)

	f.clk.Advance(20 * time.Second)
	s = f.submit(t, EnterCooldown(cooldown.ReasonUserDismissed))
	assert.Equal(t, cooldown.ReasonUserDismissed, s.Cooldown.Reason)
	assert.Equal(t, f.clk.Now().Add(dismissCooldown), s.Cooldown.ExpiresAt)

	// A second dismissal refreshes the window without touching trust again.
	f.clk.Advance(60 * time.Second)
	before, _ := f.ledger.Score(DefaultContext)
	s = f.submit(t, Dismiss())
	assert.Equal(t, f.clk.Now().Add(dismissCooldown), s.Cooldown.ExpiresAt)
	after, _ := f.ledger.Score(DefaultContext)
	assert.Equal(t, before, after)

	_, err := f.m.Submit(EnterCooldown(cooldown.ReasonInvalid))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestRejectionsLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name  string
		setup []Event
		event Event
	}{
		{"accept while idle", nil, Accept()},
		{"dismiss while idle", nil, Dismiss()},
		{"present while idle", nil, CandidatePresented()},
		{"opportunity while idle", nil, OpportunityDetected("c", "")},
		{"expire while idle", nil, CooldownExpired()},
		{"resume while idle", nil, ResumeRequested()},
		{"pause elapsed while idle", nil, PauseElapsed()},
		{"threshold while armed", []Event{IdleThresholdCrossed()}, IdleThresholdCrossed()},
		{"accept while armed", []Event{IdleThresholdCrossed()}, Accept()},
		{"opportunity while ready", []Event{IdleThresholdCrossed(), OpportunityDetected("c", "")}, OpportunityDetected("d", "")},
		{"accept while ready", []Event{IdleThresholdCrossed(), OpportunityDetected("c", "")}, Accept()},
		{"unknown kind", nil, Event{Kind: EventKind(99)}},
		{"invalid kind", nil, Event{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			for _, ev := range tt.setup {
				f.submit(t, ev)
			}
			before := f.m.State()
			historyBefore := f.m.History(0)

			s, err := f.m.Submit(tt.event)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition), "got %v", err)
			assert.Equal(t, before, s)
			assert.Equal(t, before, f.m.State())
			if diff := cmp.Diff(historyBefore, f.m.History(0)); diff != "" {
				t.Errorf("history changed on rejection (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActivityResetsTrackerAndDisarms(t *testing.T) {
	f := newFixture(t, 0)
	f.clk.Advance(15 * time.Second)
	f.submit(t, IdleThresholdCrossed())

	s := f.submit(t, ActivityDetected(idle.ActivityKeyboard))
	assert.Equal(t, ModeIdle, s.Mode)
	snap := f.tracker.Snapshot()
	assert.Zero(t, snap.LocalIdle)
	assert.Equal(t, idle.ActivityKeyboard, snap.LastActivityKind)

	// Activity elsewhere keeps the mode.
	f.submit(t, IdleThresholdCrossed())
	f.submit(t, OpportunityDetected("c", ""))
	assert.Equal(t, ModeCandidateReady, f.submit(t, ActivityDetected(idle.ActivityMouse)).Mode)
}

func TestPauseFromEveryState(t *testing.T) {
	setups := map[string][]Event{
		"idle":              nil,
		"armed":             {IdleThresholdCrossed()},
		"candidate_ready":   {IdleThresholdCrossed(), OpportunityDetected("c", "")},
		"awaiting_response": {IdleThresholdCrossed(), OpportunityDetected("c", ""), CandidatePresented()},
		"cooldown":          {EnterCooldown(cooldown.ReasonSystemBackoff)},
		"paused":            {PauseRequested(nil)},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, 0)
			for _, ev := range setup {
				f.submit(t, ev)
			}
			s := f.submit(t, PauseRequested(nil))
			assert.Equal(t, ModePaused, s.Mode)

			_, err := f.m.Submit(IdleThresholdCrossed())
			assert.True(t, errors.Is(err, errors.ErrCodePauseActive), "got %v", err)
			_, err = f.m.Submit(OpportunityDetected("x", ""))
			assert.True(t, errors.Is(err, errors.ErrCodePauseActive), "got %v", err)

			_, err = f.m.Submit(Accept())
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition))

			d, err := f.m.Decision()
			require.NoError(t, err)
			assert.False(t, d.MayPresent)
			assert.Empty(t, d.CandidateID)

			assert.Equal(t, ModeIdle, f.submit(t, ResumeRequested()).Mode)
		})
	}
}

// Paused until t+30: a query at t+31 resolves to Idle without ResumeRequested.
func TestTimedPauseResolvesLazily(t *testing.T) {
	f := newFixture(t, 0)
	until := t0.Add(30 * time.Second)
	s := f.submit(t, PauseRequested(&until))
	require.NotNil(t, s.PausedUntil)
	assert.Equal(t, until, *s.PausedUntil)

	f.clk.Advance(29 * time.Second)
	assert.Equal(t, ModePaused, f.m.State().Mode)

	f.clk.Advance(2 * time.Second)
	d, err := f.m.Decision()
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, d.State.Mode)

	last := f.m.History(1)
	require.Len(t, last, 1)
	assert.Equal(t, EventPauseElapsed, last[0].Event.Kind)
	assert.Equal(t, ModePaused, last[0].From.Mode)
}

func TestPauseElapsedEvent(t *testing.T) {
	f := newFixture(t, 0)
	until := t0.Add(time.Minute)
	f.submit(t, PauseRequested(&until))

	_, err := f.m.Submit(PauseElapsed())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition), "pause has not elapsed yet")

	f.clk.Advance(time.Minute)
	assert.Equal(t, ModeIdle, f.submit(t, PauseElapsed()).Mode)
}

func TestPauseRejectsPastUntil(t *testing.T) {
	f := newFixture(t, 0)
	past := t0.Add(-time.Second)
	_, err := f.m.Submit(PauseRequested(&past))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, ModeIdle, f.m.State().Mode)
}

func TestCooldownSurvivesPause(t *testing.T) {
	f := newFixture(t, 0)
	f.toAwaiting(t, "c-1", "")
	f.submit(t, Dismiss())

	f.submit(t, PauseRequested(nil))
	f.clk.Advance(10 * time.Second)
	f.submit(t, ResumeRequested())
	f.submit(t, IdleThresholdCrossed())

	_, err := f.m.Submit(OpportunityDetected("c-2", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition))
	assert.Equal(t, ModeArmed, f.m.State().Mode)

	f.clk.Advance(dismissCooldown)
	assert.Equal(t, ModeCandidateReady, f.submit(t, OpportunityDetected("c-2", "")).Mode)
}

func TestOpportunityRequiresCandidateID(t *testing.T) {
	f := newFixture(t, 0)
	f.submit(t, IdleThresholdCrossed())
	_, err := f.m.Submit(OpportunityDetected("", "editor"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, ModeArmed, f.m.State().Mode)
}

func TestHistoryOrderAndCapacity(t *testing.T) {
	f := newFixture(t, 3)

	f.submit(t, IdleThresholdCrossed())
	f.submit(t, OpportunityDetected("c", ""))
	f.submit(t, CandidatePresented())
	f.submit(t, Accept())
	f.submit(t, ActivityDetected(idle.ActivityScroll))

	h := f.m.History(0)
	require.Len(t, h, 3)
	assert.Equal(t, []uint64{5, 4, 3}, []uint64{h[0].Seq, h[1].Seq, h[2].Seq})
	assert.Equal(t, EventActivityDetected, h[0].Event.Kind)
	assert.Equal(t, EventAccept, h[1].Event.Kind)
	assert.Equal(t, ModeAwaitingResponse, h[1].From.Mode)
	assert.Equal(t, ModeIdle, h[1].To.Mode)

	assert.Len(t, f.m.History(2), 2)
	assert.Equal(t, 3, f.m.HistoryCapacity())
}

func TestObserversSeeAcceptedTransitions(t *testing.T) {
	f := newFixture(t, 0)
	var seen []EventKind
	f.m.OnTransition(func(tr Transition) { seen = append(seen, tr.Event.Kind) })

	f.submit(t, IdleThresholdCrossed())
	_, _ = f.m.Submit(Accept())
	f.submit(t, ActivityDetected(idle.ActivityMouse))

	assert.Equal(t, []EventKind{EventIdleThresholdCrossed, EventActivityDetected}, seen)
}

// Random event sequences never reach CandidateReady while a window is active,
// and trust always stays within [0, 1].
func TestInvariantsUnderRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := newFixture(t, 50)

	events := []func() Event{
		func() Event { return ActivityDetected(idle.ActivityKind(rng.Intn(4))) },
		IdleThresholdCrossed,
		func() Event { return OpportunityDetected("c", "ctx") },
		CandidatePresented,
		Accept,
		Dismiss,
		func() Event { return EnterCooldown(cooldown.Reason(1 + rng.Intn(2))) },
		CooldownExpired,
		func() Event {
			if rng.Intn(2) == 0 {
				return PauseRequested(nil)
			}
			u := f.clk.Now().Add(time.Duration(1+rng.Intn(60)) * time.Second)
			return PauseRequested(&u)
		},
		ResumeRequested,
		PauseElapsed,
	}

	for i := 0; i < 5000; i++ {
		f.clk.Advance(time.Duration(rng.Intn(20)) * time.Second)
		now := f.clk.Now()
		_, windowActive := f.gate.Active(now)

		s, _ := f.m.Submit(events[rng.Intn(len(events))]())
		if windowActive && s.Mode == ModeCandidateReady {
			last := f.m.History(1)
			if len(last) == 1 && last[0].To.Mode == ModeCandidateReady && last[0].At.Equal(now) {
				t.Fatalf("step %d: entered candidate_ready during active cooldown", i)
			}
		}

		score, err := f.ledger.Score("ctx")
		require.NoError(t, err)
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 1.0)
		require.LessOrEqual(t, len(f.m.History(0)), 50)
	}
}

func TestGuardedThresholdRechecksIdle(t *testing.T) {
	f := newFixture(t, 0)
	f.clk.Advance(15 * time.Second)
	ev := IdleThresholdReached(12 * time.Second)

	// Activity lands after the caller saw enough idle time.
	f.submit(t, ActivityDetected(idle.ActivityKeyboard))
	s, err := f.m.Submit(ev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidTransition))
	assert.Equal(t, ModeIdle, s.Mode)

	f.clk.Advance(12 * time.Second)
	assert.Equal(t, ModeArmed, f.submit(t, ev).Mode)
}

func TestAcceptReportsTrustFailure(t *testing.T) {
	clk := clock.NewFake(t0)
	gate := cooldown.NewGate(cooldown.Durations{Accept: acceptCooldown, Dismiss: dismissCooldown})
	m := New(Config{}, clk, idle.NewTracker(clk), gate, trust.NewLedger(0.1, math.NaN()), nil)

	for _, ev := range []Event{IdleThresholdCrossed(), OpportunityDetected("c", "ide"), CandidatePresented()} {
		_, err := m.Submit(ev)
		require.NoError(t, err)
	}

	s, err := m.Submit(Accept())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTrustOutOfRange))
	assert.Equal(t, ModeCooldown, s.Mode, "the transition is kept")
	assert.Equal(t, ModeCooldown, m.Peek().Mode)
	assert.Equal(t, EventAccept, m.History(1)[0].Event.Kind)
}

func TestConcurrentSubmitSerializesTransitions(t *testing.T) {
	const (
		workers = 8
		rounds  = 500
	)
	f := newFixture(t, workers*rounds*2)
	seq := []Event{
		IdleThresholdCrossed(),
		OpportunityDetected("c", "ctx"),
		CandidatePresented(),
		Dismiss(),
		CooldownExpired(),
		ActivityDetected(idle.ActivityMouse),
		EnterCooldown(cooldown.ReasonSystemBackoff),
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, _ = f.m.Submit(seq[(w+i)%len(seq)])
				_, _ = f.m.Decision()
				if i%50 == 0 {
					f.clk.Advance(dismissCooldown)
				}
			}
		}(w)
	}
	wg.Wait()

	history := f.m.History(0)
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		newer, older := history[i-1], history[i]
		require.Equal(t, older.Seq+1, newer.Seq, "seq gap at %d", i)
		if diff := cmp.Diff(older.To, newer.From); diff != "" {
			t.Fatalf("transition %d does not start where %d ended (-want +got):\n%s", newer.Seq, older.Seq, diff)
		}
	}
	assert.Equal(t, uint64(1), history[len(history)-1].Seq)
	assert.Equal(t, history[0].To, f.m.Peek())
}
