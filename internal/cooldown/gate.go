// Package cooldown computes and enforces backoff windows after a suggestion
// was dismissed or the system asked to back off.
package cooldown

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/nudge/errors"
)

// Reason says why a cooldown window was entered.
type Reason int

const (
	ReasonInvalid Reason = iota
	// ReasonUserDismissed carries an explicit negative signal and gets the
	// longer dismiss cooldown.
	ReasonUserDismissed
	// ReasonSystemBackoff is routine backoff and gets the accept cooldown.
	ReasonSystemBackoff
)

// String returns the wire name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonUserDismissed:
		return "user_dismissed"
	case ReasonSystemBackoff:
		return "system_backoff"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Valid reports whether r is a defined reason.
func (r Reason) Valid() bool {
	return r == ReasonUserDismissed || r == ReasonSystemBackoff
}

// Reasons returns the defined reasons.
func Reasons() []Reason {
	return []Reason{ReasonSystemBackoff, ReasonUserDismissed}
}

// ParseReason parses a wire name into a Reason.
func ParseReason(s string) (Reason, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user_dismissed", "dismissed", "dismiss":
		return ReasonUserDismissed, nil
	case "system_backoff", "backoff", "":
		return ReasonSystemBackoff, nil
	}
	return ReasonInvalid, errors.InvalidInput("reason", fmt.Sprintf("unknown cooldown reason %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	parsed, err := ParseReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Window is one backoff period.
type Window struct {
	Reason    Reason    `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the window has run out at now.
func (w Window) IsExpired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

// Remaining returns the time left in the window, or zero once expired.
func (w Window) Remaining(now time.Time) time.Duration {
	if w.IsExpired(now) {
		return 0
	}
	return w.ExpiresAt.Sub(now)
}

// Durations configures the window length per reason.
type Durations struct {
	Accept  time.Duration // used for ReasonSystemBackoff
	Dismiss time.Duration // used for ReasonUserDismissed
}

// Gate holds at most one window. Entering a new window replaces the current
// one with a fresh full-length window for the new reason.
type Gate struct {
	durations Durations

	mu     sync.Mutex
	window *Window
}

// NewGate creates a Gate with the given durations.
func NewGate(d Durations) *Gate {
	return &Gate{durations: d}
}

// Duration returns the window length for reason.
func (g *Gate) Duration(reason Reason) (time.Duration, error) {
	switch reason {
	case ReasonUserDismissed:
		return g.durations.Dismiss, nil
	case ReasonSystemBackoff:
		return g.durations.Accept, nil
	}
	return 0, errors.InvalidInput("reason", fmt.Sprintf("unknown cooldown reason %s", reason))
}

// Enter starts a window for reason at now, replacing any active window.
func (g *Gate) Enter(reason Reason, now time.Time) (Window, error) {
	d, err := g.Duration(reason)
	if err != nil {
		return Window{}, err
	}

	w := Window{Reason: reason, StartedAt: now, ExpiresAt: now.Add(d)}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.window = &w
	return w, nil
}

// IsExpired reports whether window has run out at now.
func (g *Gate) IsExpired(window Window, now time.Time) bool {
	return window.IsExpired(now)
}

// Current returns the stored window, expired or not.
func (g *Gate) Current() (Window, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window == nil {
		return Window{}, false
	}
	return *g.window, true
}

// Active returns the stored window if it has not yet expired at now.
func (g *Gate) Active(now time.Time) (Window, bool) {
	w, ok := g.Current()
	if !ok || w.IsExpired(now) {
		return Window{}, false
	}
	return w, true
}

// Remaining returns the time left in the active window, or zero.
func (g *Gate) Remaining(now time.Time) time.Duration {
	w, ok := g.Current()
	if !ok {
		return 0
	}
	return w.Remaining(now)
}

// Clear drops the stored window.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.window = nil
}
