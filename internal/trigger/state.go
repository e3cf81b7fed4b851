package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/cooldown"
)

// Mode is the machine's current mode.
type Mode int

const (
	ModeIdle Mode = iota
	// ModeArmed means the idle threshold was crossed and the machine waits for a candidate.
	ModeArmed
	// ModeCandidateReady means a candidate is queued for presentation.
	ModeCandidateReady
	// ModeAwaitingResponse means the candidate was presented and the user has not answered.
	ModeAwaitingResponse
	ModeCooldown
	ModePaused
)

var modeNames = map[Mode]string{
	ModeIdle:             "idle",
	ModeArmed:            "armed",
	ModeCandidateReady:   "candidate_ready",
	ModeAwaitingResponse: "awaiting_response",
	ModeCooldown:         "cooldown",
	ModePaused:           "paused",
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses a wire name into a Mode.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeIdle, errors.InvalidInput("mode", fmt.Sprintf("unknown mode %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is the machine's full state. Cooldown is set only in ModeCooldown and
// PausedUntil only in ModePaused; a nil PausedUntil is an open-ended pause.
type State struct {
	Mode        Mode             `json:"mode"`
	Cooldown    *cooldown.Window `json:"cooldown,omitempty"`
	PausedUntil *time.Time       `json:"paused_until,omitempty"`
}

// String renders the state for logs and error details.
func (s State) String() string {
	switch s.Mode {
	case ModeCooldown:
		if s.Cooldown != nil {
			return fmt.Sprintf("cooldown(%s)", s.Cooldown.Reason)
		}
	case ModePaused:
		if s.PausedUntil != nil {
			return fmt.Sprintf("paused(until %s)", s.PausedUntil.Format(time.RFC3339))
		}
	}
	return s.Mode.String()
}

func idleState() State { return State{Mode: ModeIdle} }

func cooldownState(w cooldown.Window) State {
	return State{Mode: ModeCooldown, Cooldown: &w}
}

func pausedState(until *time.Time) State {
	s := State{Mode: ModePaused}
	if until != nil {
		u := *until
		s.PausedUntil = &u
	}
	return s
}
