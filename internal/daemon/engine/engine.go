// Package engine owns the trigger machine and its collaborators and runs the
// background collectors for the daemon.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/nudge/config"
	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/grovetools/nudge/internal/cooldown"
	"github.com/grovetools/nudge/internal/daemon/collector"
	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/internal/trust"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FeedbackResult is published for every recorded feedback outcome.
type FeedbackResult struct {
	ContextKey string        `json:"context_key"`
	Outcome    trust.Outcome `json:"outcome"`
	Score      float64       `json:"score"`
}

// Engine manages the trigger machine and runs all collectors.
type Engine struct {
	cfg       *config.Config
	clock     clock.Clock
	tracker   *idle.Tracker
	gate      *cooldown.Gate
	ledger    *trust.Ledger
	machine   *trigger.Machine
	store     *store.Store
	logger    *logrus.Entry
	startedAt time.Time

	collectors []collector.Collector
}

// New creates an Engine from a loaded configuration. The idle evaluator is
// registered automatically; other collectors are added with Register.
func New(cfg *config.Config, clk clock.Clock, st *store.Store, logger *logrus.Entry) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if st == nil {
		st = store.New()
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = logrus.NewEntry(l)
	}

	tracker := idle.NewTracker(clk)
	gate := cooldown.NewGate(cooldown.Durations{
		Accept:  cfg.Trigger.AcceptCooldown,
		Dismiss: cfg.Trigger.DismissCooldown,
	})
	ledger := trust.NewLedger(cfg.SmoothingFactor(), cfg.Trust.Initial)
	machine := trigger.New(trigger.Config{
		HistoryCapacity: cfg.Trigger.HistoryCapacity,
		DefaultContext:  cfg.Trust.DefaultContext,
	}, clk, tracker, gate, ledger, logger.WithField("subsystem", "trigger"))

	e := &Engine{
		cfg:       cfg,
		clock:     clk,
		tracker:   tracker,
		gate:      gate,
		ledger:    ledger,
		machine:   machine,
		store:     st,
		logger:    logger,
		startedAt: clk.Now(),
	}

	machine.OnTransition(func(tr trigger.Transition) {
		st.ApplyUpdate(store.Update{
			Type:    store.UpdateTransition,
			Source:  "machine",
			At:      tr.At,
			Payload: tr,
		})
	})

	e.Register(collector.NewEvaluator(e, clk, cfg.Trigger.IdleThreshold, cfg.Trigger.TickInterval,
		logger.WithField("collector", "evaluator")))
	return e
}

// Register adds a collector to the engine. It must be called before Start.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// Start runs all collectors and blocks until ctx is canceled or a collector fails.
func (e *Engine) Start(ctx context.Context) error {
	updates := make(chan store.Update, 100)
	g, gctx := errgroup.WithContext(ctx)

	// 1. Start Update Consumer
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case u := <-updates:
				e.store.ApplyUpdate(u)
			}
		}
	})

	// 2. Start Collectors
	for _, c := range e.collectors {
		col := c
		g.Go(func() error {
			e.logger.WithField("collector", col.Name()).Info("Starting collector")
			if err := col.Run(gctx, updates); err != nil {
				e.logger.WithField("collector", col.Name()).WithError(err).Error("Collector failed")
				return fmt.Errorf("collector %s: %w", col.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Submit is the only way to change the machine's state.
func (e *Engine) Submit(ev trigger.Event) (trigger.State, error) {
	return e.machine.Submit(ev)
}

// State returns the current state, resolving an elapsed pause.
func (e *Engine) State() trigger.State {
	return e.machine.State()
}

// Peek returns the current state as is.
func (e *Engine) Peek() trigger.State {
	return e.machine.Peek()
}

// Decision returns the current decision.
func (e *Engine) Decision() (trigger.Decision, error) {
	return e.machine.Decision()
}

// History returns up to limit transitions, most recent first.
func (e *Engine) History(limit int) []trigger.Transition {
	return e.machine.History(limit)
}

// Idle returns the tracker's current snapshot.
func (e *Engine) Idle() idle.Snapshot {
	return e.tracker.Snapshot()
}

// ObserveOSIdle feeds an idle reading from an OS hook into the tracker.
func (e *Engine) ObserveOSIdle(d time.Duration) error {
	if d < 0 {
		return errors.InvalidInput("idle_seconds", "must not be negative")
	}
	e.tracker.ObserveOSIdle(d)
	return nil
}

// RecordFeedback applies an outcome to a trust context outside the
// accept/dismiss flow, for example from a prompt layer that asks explicitly.
func (e *Engine) RecordFeedback(contextKey string, outcome trust.Outcome) (float64, error) {
	key := e.contextKey(contextKey)
	score, err := e.ledger.Record(key, outcome)
	if err != nil {
		return score, err
	}

	e.logger.WithFields(logrus.Fields{
		"context": key,
		"outcome": outcome.String(),
		"score":   score,
	}).Info("Feedback recorded")

	e.store.ApplyUpdate(store.Update{
		Type:    store.UpdateFeedback,
		Source:  "api",
		At:      e.clock.Now(),
		Payload: FeedbackResult{ContextKey: key, Outcome: outcome, Score: score},
	})
	return score, nil
}

// Trust returns every known trust context.
func (e *Engine) Trust() []trust.Entry {
	return e.ledger.Snapshot()
}

// TrustFor returns one trust context, creating it at the initial score.
func (e *Engine) TrustFor(contextKey string) (trust.Entry, error) {
	key := e.contextKey(contextKey)
	score, err := e.ledger.Score(key)
	return trust.Entry{ContextKey: key, Score: score, Metrics: e.ledger.Metrics(key)}, err
}

// ResetMetrics clears the feedback tally for a context. Its score is kept.
func (e *Engine) ResetMetrics(contextKey string) {
	key := e.contextKey(contextKey)
	e.ledger.ResetMetrics(key)
	e.store.ApplyUpdate(store.Update{
		Type:    store.UpdateTrustReset,
		Source:  "api",
		At:      e.clock.Now(),
		Payload: key,
	})
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Store returns the engine's update store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// StartedAt returns when the engine was created.
func (e *Engine) StartedAt() time.Time {
	return e.startedAt
}

// HistoryCapacity returns the transition log's capacity.
func (e *Engine) HistoryCapacity() int {
	return e.machine.HistoryCapacity()
}

func (e *Engine) contextKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return e.cfg.Trust.DefaultContext
	}
	return key
}
