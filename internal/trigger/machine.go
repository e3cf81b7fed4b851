// Package trigger implements the state machine that decides whether a
// proactive suggestion may be shown right now.
//
// Every input goes through Machine.Submit, including the synthetic events the
// background evaluator derives from the clock. An event is either accepted,
// producing exactly one history record, or rejected with the state untouched.
package trigger

import (
	"sync"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/grovetools/nudge/internal/cooldown"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trust"
	"github.com/sirupsen/logrus"
)

// DefaultContext is the trust context used when an opportunity names none.
const DefaultContext = "default"

// Config holds the machine's static settings.
type Config struct {
	HistoryCapacity int
	DefaultContext  string
}

// Decision is the read-only view consumed by the presentation and prompt layers.
type Decision struct {
	State             State         `json:"state"`
	MayPresent        bool          `json:"may_present"`
	CandidateID       string        `json:"candidate_id,omitempty"`
	ContextKey        string        `json:"context_key"`
	Trust             float64       `json:"trust"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
	At                time.Time     `json:"at"`
}

// Observer is called with every accepted transition, after the machine's
// lock has been released.
type Observer func(Transition)

// Machine is the trigger state machine. It is safe for concurrent use; all
// mutation happens under a single lock.
type Machine struct {
	clock   clock.Clock
	tracker *idle.Tracker
	gate    *cooldown.Gate
	ledger  *trust.Ledger
	logger  *logrus.Entry
	cfg     Config

	mu          sync.Mutex
	state       State
	candidateID string
	contextKey  string
	history     *History
	seq         uint64
	observers   []Observer
	trustErr    error
}

// New creates a Machine in ModeIdle.
func New(cfg Config, clk clock.Clock, tracker *idle.Tracker, gate *cooldown.Gate, ledger *trust.Ledger, logger *logrus.Entry) *Machine {
	if cfg.DefaultContext == "" {
		cfg.DefaultContext = DefaultContext
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = logrus.NewEntry(l)
	}
	return &Machine{
		clock:      clk,
		tracker:    tracker,
		gate:       gate,
		ledger:     ledger,
		logger:     logger,
		cfg:        cfg,
		state:      idleState(),
		contextKey: cfg.DefaultContext,
		history:    NewHistory(cfg.HistoryCapacity),
	}
}

// OnTransition registers an observer.
func (m *Machine) OnTransition(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Submit applies ev and returns the resulting state. A rejected event returns
// the unchanged state together with an INVALID_TRANSITION, PAUSE_ACTIVE or
// INVALID_INPUT error. A TRUST_OUT_OF_RANGE error comes back with the
// committed state: the transition stands but the score was not updated.
func (m *Machine) Submit(ev Event) (State, error) {
	now := m.clock.Now()
	if ev.Until != nil {
		until := *ev.Until
		ev.Until = &until
	}

	m.mu.Lock()
	var fired []Transition
	if ev.Kind != EventPauseElapsed {
		if tr, ok := m.resolvePauseLocked(now); ok {
			fired = append(fired, tr)
		}
	}
	tr, err := m.applyLocked(ev, now)
	if err == nil {
		fired = append(fired, tr)
	}
	state := m.state
	observers := m.observers
	trustErr := m.trustErr
	m.trustErr = nil
	m.mu.Unlock()

	if trustErr != nil {
		m.logger.WithError(trustErr).WithField("state", state.String()).Error("Trust update failed")
	}
	if err != nil {
		entry := m.logger.WithFields(logrus.Fields{"state": state.String(), "event": ev.String()})
		if errors.Is(err, errors.ErrCodePauseActive) {
			entry.Trace("Event suppressed by pause")
		} else {
			entry.WithError(err).Debug("Event rejected")
		}
	}
	m.notify(observers, fired)
	if err == nil && trustErr != nil {
		err = trustErr
	}
	return state, err
}

// State returns the current state, resolving an elapsed pause first.
func (m *Machine) State() State {
	now := m.clock.Now()

	m.mu.Lock()
	tr, ok := m.resolvePauseLocked(now)
	state := m.state
	observers := m.observers
	m.mu.Unlock()

	if ok {
		m.notify(observers, []Transition{tr})
	}
	return state
}

// Peek returns the current state without resolving an elapsed pause. The
// background evaluator uses it to decide which synthetic event to submit.
func (m *Machine) Peek() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Decision returns the current decision. The error is non-nil only when the
// trust score for the active context is out of range.
func (m *Machine) Decision() (Decision, error) {
	now := m.clock.Now()

	m.mu.Lock()
	tr, resolved := m.resolvePauseLocked(now)
	d := Decision{
		State:      m.state,
		MayPresent: m.state.Mode == ModeCandidateReady,
		ContextKey: m.contextKey,
		At:         now,
	}
	if m.state.Mode == ModeCandidateReady || m.state.Mode == ModeAwaitingResponse {
		d.CandidateID = m.candidateID
	}
	observers := m.observers
	m.mu.Unlock()

	if resolved {
		m.notify(observers, []Transition{tr})
	}

	d.CooldownRemaining = m.gate.Remaining(now)
	score, err := m.ledger.Score(d.ContextKey)
	d.Trust = score
	return d, err
}

// History returns up to limit transitions, most recent first.
func (m *Machine) History(limit int) []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Recent(limit)
}

// HistoryCapacity returns the configured history capacity.
func (m *Machine) HistoryCapacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Cap()
}

func (m *Machine) notify(observers []Observer, fired []Transition) {
	for _, tr := range fired {
		m.logger.WithFields(logrus.Fields{
			"from":  tr.From.String(),
			"to":    tr.To.String(),
			"event": tr.Event.String(),
			"seq":   tr.Seq,
		}).Debug("Transition")
		for _, fn := range observers {
			fn(tr)
		}
	}
}

// resolvePauseLocked moves an elapsed timed pause back to idle.
func (m *Machine) resolvePauseLocked(now time.Time) (Transition, bool) {
	if m.state.Mode != ModePaused || m.state.PausedUntil == nil || now.Before(*m.state.PausedUntil) {
		return Transition{}, false
	}
	return m.commitLocked(PauseElapsed(), idleState(), now), true
}

func (m *Machine) commitLocked(ev Event, to State, now time.Time) Transition {
	m.seq++
	tr := Transition{Seq: m.seq, From: m.state, Event: ev, To: to, At: now}
	m.state = to
	m.history.Append(tr)
	return tr
}

func (m *Machine) reject(ev Event) *errors.NudgeError {
	return errors.InvalidTransition(m.state.String(), ev.Kind.String())
}

// applyLocked validates ev against the current state and, if accepted,
// performs its side effects and commits the transition. Nothing is mutated
// before validation succeeds.
func (m *Machine) applyLocked(ev Event, now time.Time) (Transition, error) {
	from := m.state

	switch ev.Kind {
	case EventActivityDetected:
		m.tracker.Reset(ev.Activity)
		to := from
		if from.Mode == ModeArmed {
			to = idleState()
		}
		return m.commitLocked(ev, to, now), nil

	case EventIdleThresholdCrossed:
		if from.Mode == ModePaused {
			return Transition{}, errors.PauseActive(ev.Kind.String())
		}
		if from.Mode != ModeIdle {
			return Transition{}, m.reject(ev)
		}
		if ev.MinIdle > 0 {
			if snap := m.tracker.Snapshot(); snap.EffectiveIdle < ev.MinIdle {
				return Transition{}, m.reject(ev).
					WithDetail("effective_idle", snap.EffectiveIdle.String()).
					WithDetail("min_idle", ev.MinIdle.String())
			}
		}
		return m.commitLocked(ev, State{Mode: ModeArmed}, now), nil

	case EventOpportunityDetected:
		if from.Mode == ModePaused {
			return Transition{}, errors.PauseActive(ev.Kind.String())
		}
		if from.Mode != ModeArmed {
			return Transition{}, m.reject(ev)
		}
		if ev.CandidateID == "" {
			return Transition{}, errors.InvalidInput("candidate_id", "must not be empty")
		}
		if w, active := m.gate.Active(now); active {
			return Transition{}, m.reject(ev).
				WithDetail("cooldown_reason", w.Reason.String()).
				WithDetail("cooldown_remaining", w.Remaining(now).String())
		}
		m.candidateID = ev.CandidateID
		m.contextKey = ev.ContextKey
		if m.contextKey == "" {
			m.contextKey = m.cfg.DefaultContext
		}
		return m.commitLocked(ev, State{Mode: ModeCandidateReady}, now), nil

	case EventCandidatePresented:
		if from.Mode != ModeCandidateReady {
			return Transition{}, m.reject(ev)
		}
		return m.commitLocked(ev, State{Mode: ModeAwaitingResponse}, now), nil

	case EventAccept:
		if from.Mode != ModeAwaitingResponse {
			return Transition{}, m.reject(ev)
		}
		m.gate.Clear()
		m.recordLocked(trust.OutcomePositive)
		m.candidateID = ""
		return m.commitLocked(ev, idleState(), now), nil

	case EventDismiss:
		switch from.Mode {
		case ModeAwaitingResponse:
			w, err := m.gate.Enter(cooldown.ReasonUserDismissed, now)
			if err != nil {
				return Transition{}, err
			}
			m.recordLocked(trust.OutcomeNegative)
			m.candidateID = ""
			return m.commitLocked(ev, cooldownState(w), now), nil
		case ModeCooldown:
			// A repeated dismissal extends protection; the candidate was already scored.
			w, err := m.gate.Enter(cooldown.ReasonUserDismissed, now)
			if err != nil {
				return Transition{}, err
			}
			return m.commitLocked(ev, cooldownState(w), now), nil
		}
		return Transition{}, m.reject(ev)

	case EventEnterCooldown:
		if from.Mode == ModePaused {
			return Transition{}, m.reject(ev)
		}
		if !ev.Reason.Valid() {
			return Transition{}, errors.InvalidInput("reason", "unknown cooldown reason "+ev.Reason.String())
		}
		w, err := m.gate.Enter(ev.Reason, now)
		if err != nil {
			return Transition{}, err
		}
		m.candidateID = ""
		return m.commitLocked(ev, cooldownState(w), now), nil

	case EventCooldownExpired:
		if from.Mode != ModeCooldown || from.Cooldown == nil {
			return Transition{}, m.reject(ev)
		}
		if !from.Cooldown.IsExpired(now) {
			return Transition{}, m.reject(ev).
				WithDetail("expires_at", from.Cooldown.ExpiresAt.Format(time.RFC3339Nano)).
				WithDetail("remaining", from.Cooldown.Remaining(now).String())
		}
		m.gate.Clear()
		return m.commitLocked(ev, idleState(), now), nil

	case EventPauseRequested:
		if ev.Until != nil && !ev.Until.After(now) {
			return Transition{}, errors.InvalidInput("until", "pause must end in the future")
		}
		m.candidateID = ""
		return m.commitLocked(ev, pausedState(ev.Until), now), nil

	case EventResumeRequested:
		if from.Mode != ModePaused {
			return Transition{}, m.reject(ev)
		}
		return m.commitLocked(ev, idleState(), now), nil

	case EventPauseElapsed:
		if from.Mode != ModePaused || from.PausedUntil == nil || now.Before(*from.PausedUntil) {
			return Transition{}, m.reject(ev)
		}
		return m.commitLocked(ev, idleState(), now), nil
	}

	return Transition{}, m.reject(ev)
}

// recordLocked scores the active context. A trust failure does not undo the
// transition; Submit reports it once the lock is released.
func (m *Machine) recordLocked(outcome trust.Outcome) {
	if _, err := m.ledger.Record(m.contextKey, outcome); err != nil {
		m.trustErr = err
	}
}
