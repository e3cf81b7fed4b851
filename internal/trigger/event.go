package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/cooldown"
	"github.com/grovetools/nudge/internal/idle"
)

// EventKind identifies a trigger event.
type EventKind int

const (
	EventInvalid EventKind = iota
	EventActivityDetected
	EventIdleThresholdCrossed
	EventOpportunityDetected
	EventCandidatePresented
	EventAccept
	EventDismiss
	EventEnterCooldown
	EventCooldownExpired
	EventPauseRequested
	EventResumeRequested
	EventPauseElapsed
)

var eventNames = map[EventKind]string{
	EventActivityDetected:     "activity_detected",
	EventIdleThresholdCrossed: "idle_threshold_crossed",
	EventOpportunityDetected:  "opportunity_detected",
	EventCandidatePresented:   "candidate_presented",
	EventAccept:               "accept",
	EventDismiss:              "dismiss",
	EventEnterCooldown:        "enter_cooldown",
	EventCooldownExpired:      "cooldown_expired",
	EventPauseRequested:       "pause_requested",
	EventResumeRequested:      "resume_requested",
	EventPauseElapsed:         "pause_elapsed",
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// EventKinds returns every valid kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventNames))
	for k := EventActivityDetected; k <= EventPauseElapsed; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseEventKind parses a wire name. A few short aliases used by the CLI are accepted.
func ParseEventKind(s string) (EventKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range eventNames {
		if name == s {
			return k, nil
		}
	}
	switch s {
	case "activity":
		return EventActivityDetected, nil
	case "idle":
		return EventIdleThresholdCrossed, nil
	case "opportunity":
		return EventOpportunityDetected, nil
	case "present", "presented":
		return EventCandidatePresented, nil
	case "cooldown":
		return EventEnterCooldown, nil
	case "expire", "expired":
		return EventCooldownExpired, nil
	case "pause":
		return EventPauseRequested, nil
	case "resume":
		return EventResumeRequested, nil
	}
	return EventInvalid, errors.InvalidInput("event", fmt.Sprintf("unknown event kind %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one input to the machine. Only the fields relevant to Kind are read.
type Event struct {
	Kind        EventKind         `json:"kind"`
	Activity    idle.ActivityKind `json:"activity,omitempty"`
	CandidateID string            `json:"candidate_id,omitempty"`
	ContextKey  string            `json:"context_key,omitempty"`
	Reason      cooldown.Reason   `json:"reason,omitempty"`
	Until       *time.Time        `json:"until,omitempty"`
	// MinIdle, when set, is re-checked against the idle tracker as the
	// event is applied.
	MinIdle time.Duration `json:"min_idle,omitempty"`
}

// String renders the event for logs and error details.
func (e Event) String() string {
	switch e.Kind {
	case EventActivityDetected:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Activity)
	case EventOpportunityDetected:
		return fmt.Sprintf("%s(%s)", e.Kind, e.CandidateID)
	case EventEnterCooldown:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

// ActivityDetected reports user input of the given kind.
func ActivityDetected(kind idle.ActivityKind) Event {
	return Event{Kind: EventActivityDetected, Activity: kind}
}

// IdleThresholdCrossed reports that the user has been idle past the threshold.
func IdleThresholdCrossed() Event {
	return Event{Kind: EventIdleThresholdCrossed}
}

// IdleThresholdReached is IdleThresholdCrossed guarded by threshold: it is
// rejected if activity has reset the tracker below threshold in the meantime.
func IdleThresholdReached(threshold time.Duration) Event {
	return Event{Kind: EventIdleThresholdCrossed, MinIdle: threshold}
}

// OpportunityDetected reports a candidate suggestion. An empty contextKey uses
// the machine's default context.
func OpportunityDetected(candidateID, contextKey string) Event {
	return Event{Kind: EventOpportunityDetected, CandidateID: candidateID, ContextKey: contextKey}
}

// CandidatePresented reports that the presentation layer showed the candidate.
func CandidatePresented() Event {
	return Event{Kind: EventCandidatePresented}
}

// Accept reports that the user accepted the presented candidate.
func Accept() Event { return Event{Kind: EventAccept} }

// Dismiss reports that the user dismissed the presented candidate.
func Dismiss() Event { return Event{Kind: EventDismiss} }

// EnterCooldown asks the machine to back off for reason.
func EnterCooldown(reason cooldown.Reason) Event {
	return Event{Kind: EventEnterCooldown, Reason: reason}
}

// CooldownExpired reports that the active cooldown window has run out.
func CooldownExpired() Event { return Event{Kind: EventCooldownExpired} }

// PauseRequested suspends the machine until the given time, or indefinitely when until is nil.
func PauseRequested(until *time.Time) Event {
	return Event{Kind: EventPauseRequested, Until: until}
}

// ResumeRequested ends a pause.
func ResumeRequested() Event { return Event{Kind: EventResumeRequested} }

// PauseElapsed reports that a timed pause has run out.
func PauseElapsed() Event { return Event{Kind: EventPauseElapsed} }
