package errors

import (
	"fmt"
)

// InvalidTransition creates an error for an event the current state does not accept
func InvalidTransition(state, event string) *NudgeError {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("event '%s' is not valid in state '%s'", event, state)).
		WithDetail("state", state).
		WithDetail("event", event)
}

// PauseActive creates an error for idle/opportunity events suppressed by a pause
func PauseActive(event string) *NudgeError {
	return New(ErrCodePauseActive, fmt.Sprintf("event '%s' suppressed while paused", event)).
		WithDetail("state", "paused").
		WithDetail("event", event)
}

// InvalidOutcome creates a malformed feedback outcome error
func InvalidOutcome(outcome string) *NudgeError {
	return New(ErrCodeInvalidOutcome, fmt.Sprintf("invalid feedback outcome: %q", outcome)).
		WithDetail("outcome", outcome)
}

// TrustOutOfRange creates an error for a stored trust score outside [0, 1]
func TrustOutOfRange(contextKey string, score float64) *NudgeError {
	return New(ErrCodeTrustOutOfRange,
		fmt.Sprintf("trust score for '%s' out of range: %v", contextKey, score)).
		WithDetail("context_key", contextKey).
		WithDetail("score", score)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *NudgeError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *NudgeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InvalidInput creates an error for a malformed request field
func InvalidInput(field, reason string) *NudgeError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field)
}

// DaemonUnavailable creates an error for a daemon that cannot be reached
func DaemonUnavailable(socketPath string, err error) *NudgeError {
	return Wrap(err, ErrCodeDaemonUnavailable, "nudge daemon is not running").
		WithDetail("socket", socketPath)
}
