// Package collector provides the background workers the daemon engine runs.
package collector

import (
	"context"

	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trigger"
)

// Collector is a background worker.
type Collector interface {
	// Name returns the collector's name for logging.
	Name() string

	// Run starts the collector. It should block until context is canceled.
	// Out-of-band notices are emitted via the updates channel.
	Run(ctx context.Context, updates chan<- store.Update) error
}

// Target is the part of the engine the evaluator drives. Every time-driven
// transition goes through Submit like any other event.
type Target interface {
	Peek() trigger.State
	Idle() idle.Snapshot
	Submit(ev trigger.Event) (trigger.State, error)
}

// emit sends u unless ctx is done first.
func emit(ctx context.Context, updates chan<- store.Update, u store.Update) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
