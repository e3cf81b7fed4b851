// Package store is the daemon's in-memory update hub. It fans every change
// out to streaming clients and keeps running counters for /api/config.
package store

import "time"

// UpdateType defines what kind of change happened.
type UpdateType string

const (
	UpdateTransition    UpdateType = "transition"
	UpdateFeedback      UpdateType = "feedback"
	UpdateTrustReset    UpdateType = "trust_reset"
	UpdateConfigChanged UpdateType = "config_changed"
)

// Update represents one change.
type Update struct {
	Type UpdateType `json:"type"`
	// Source names the component that produced the update (e.g. "machine", "api", "config").
	Source  string      `json:"source,omitempty"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// Stats counts the updates the store has seen since startup.
type Stats struct {
	Transitions   uint64    `json:"transitions"`
	Feedback      uint64    `json:"feedback"`
	ConfigChanges uint64    `json:"config_changes"`
	LastUpdate    time.Time `json:"last_update,omitempty"`
	Subscribers   int       `json:"subscribers"`
	Dropped       uint64    `json:"dropped"`
}
