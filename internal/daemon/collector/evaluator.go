package collector

import (
	"context"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/sirupsen/logrus"
)

// Evaluator re-checks the idle threshold, cooldown expiry and timed pauses on
// a fixed tick and submits the matching synthetic event.
type Evaluator struct {
	target    Target
	clock     clock.Clock
	threshold time.Duration
	interval  time.Duration
	logger    *logrus.Entry
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(target Target, clk clock.Clock, threshold, interval time.Duration, logger *logrus.Entry) *Evaluator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Evaluator{
		target:    target,
		clock:     clk,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
	}
}

// Name returns the collector's name.
func (e *Evaluator) Name() string { return "evaluator" }

// Run ticks until ctx is cancelled. A tick never holds a lock across the
// wait, so cancellation between ticks is always safe.
func (e *Evaluator) Run(ctx context.Context, _ chan<- store.Update) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick evaluates once and returns the event it submitted, or EventInvalid
// when nothing was due or the submission was rejected.
func (e *Evaluator) Tick() trigger.EventKind {
	now := e.clock.Now()
	st := e.target.Peek()

	var ev trigger.Event
	switch st.Mode {
	case trigger.ModeIdle:
		if e.target.Idle().EffectiveIdle < e.threshold {
			return trigger.EventInvalid
		}
		ev = trigger.IdleThresholdReached(e.threshold)
	case trigger.ModeCooldown:
		if st.Cooldown == nil || !st.Cooldown.IsExpired(now) {
			return trigger.EventInvalid
		}
		ev = trigger.CooldownExpired()
	case trigger.ModePaused:
		if st.PausedUntil == nil || now.Before(*st.PausedUntil) {
			return trigger.EventInvalid
		}
		ev = trigger.PauseElapsed()
	default:
		return trigger.EventInvalid
	}

	if _, err := e.target.Submit(ev); err != nil {
		// The state moved between Peek and Submit; the next tick re-evaluates.
		level := logrus.DebugLevel
		if !errors.Is(err, errors.ErrCodeInvalidTransition) && !errors.Is(err, errors.ErrCodePauseActive) {
			level = logrus.WarnLevel
		}
		e.logger.WithError(err).WithField("event", ev.String()).Log(level, "Synthetic event rejected")
		return trigger.EventInvalid
	}
	return ev.Kind
}
