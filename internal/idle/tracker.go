// Package idle converts raw activity signals into idle durations.
package idle

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/clock"
)

// ActivityKind tags the most recent input signal.
type ActivityKind int

const (
	ActivityUnknown ActivityKind = iota
	ActivityKeyboard
	ActivityMouse
	ActivityScroll
)

// String returns the wire name of the activity kind.
func (k ActivityKind) String() string {
	switch k {
	case ActivityKeyboard:
		return "keyboard"
	case ActivityMouse:
		return "mouse"
	case ActivityScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// ActivityKinds returns every activity kind, ActivityUnknown last.
func ActivityKinds() []ActivityKind {
	return []ActivityKind{ActivityKeyboard, ActivityMouse, ActivityScroll, ActivityUnknown}
}

// ParseActivityKind parses a wire name. The empty string maps to ActivityUnknown.
func ParseActivityKind(s string) (ActivityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyboard":
		return ActivityKeyboard, nil
	case "mouse":
		return ActivityMouse, nil
	case "scroll":
		return ActivityScroll, nil
	case "unknown", "":
		return ActivityUnknown, nil
	}
	return ActivityUnknown, errors.InvalidInput("activity", fmt.Sprintf("unknown activity kind %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (k ActivityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActivityKind) UnmarshalText(text []byte) error {
	parsed, err := ParseActivityKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Snapshot is a point-in-time view of both idle clocks.
// EffectiveIdle is always min(OSIdle, LocalIdle).
type Snapshot struct {
	OSIdle           time.Duration `json:"os_idle"`
	LocalIdle        time.Duration `json:"local_idle"`
	EffectiveIdle    time.Duration `json:"effective_idle"`
	LastActivityKind ActivityKind  `json:"last_activity_kind"`
}

// Tracker records activity and reports idle time. It is safe for concurrent use.
type Tracker struct {
	clock clock.Clock

	mu           sync.Mutex
	lastActivity time.Time
	lastKind     ActivityKind

	// OS readings are extrapolated from the moment they were observed.
	osIdle     time.Duration
	osObserved time.Time
	hasOS      bool
}

// NewTracker creates a Tracker whose local clock starts now.
func NewTracker(clk clock.Clock) *Tracker {
	return &Tracker{
		clock:        clk,
		lastActivity: clk.Now(),
		lastKind:     ActivityUnknown,
	}
}

// Reset records activity of the given kind at the current time.
func (t *Tracker) Reset(kind ActivityKind) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity = now
	t.lastKind = kind
}

// ObserveOSIdle records an idle reading taken from the operating system.
func (t *Tracker) ObserveOSIdle(d time.Duration) {
	if d < 0 {
		d = 0
	}
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.osIdle = d
	t.osObserved = now
	t.hasOS = true
}

// Snapshot computes idle durations as of now.
func (t *Tracker) Snapshot() Snapshot {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	local := nonNegative(now.Sub(t.lastActivity))
	os := local
	if t.hasOS {
		os = nonNegative(t.osIdle + now.Sub(t.osObserved))
	}

	effective := local
	if os < effective {
		effective = os
	}

	return Snapshot{
		OSIdle:           os,
		LocalIdle:        local,
		EffectiveIdle:    effective,
		LastActivityKind: t.lastKind,
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
