// Package daemon provides a client for the nudge daemon (nudged) and the
// wire types its HTTP API speaks.
package daemon

import (
	"context"
	"time"

	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/internal/trust"
)

// Client defines the interface for interacting with the nudge daemon.
type Client interface {
	// Decision returns whether a suggestion may be shown right now.
	Decision(ctx context.Context) (*trigger.Decision, error)

	// History returns up to limit transitions, most recent first. A limit of
	// zero returns the whole log.
	History(ctx context.Context, limit int) ([]trigger.Transition, error)

	// Idle returns the daemon's idle snapshot.
	Idle(ctx context.Context) (*idle.Snapshot, error)

	// Submit sends one event to the trigger machine and returns the resulting state.
	Submit(ctx context.Context, ev trigger.Event) (*trigger.State, error)

	// ObserveOSIdle reports the operating system's idle time.
	ObserveOSIdle(ctx context.Context, d time.Duration) error

	// Feedback records an outcome for a trust context and returns the new score.
	Feedback(ctx context.Context, contextKey string, outcome trust.Outcome) (*FeedbackResponse, error)

	// Trust returns every known trust context.
	Trust(ctx context.Context) ([]trust.Entry, error)

	// TrustFor returns a single trust context.
	TrustFor(ctx context.Context, contextKey string) (*trust.Entry, error)

	// ResetMetrics clears the feedback tally of a context.
	ResetMetrics(ctx context.Context, contextKey string) error

	// RunningConfig returns the configuration the daemon is using.
	RunningConfig(ctx context.Context) (*RunningConfig, error)

	// Stream subscribes to real-time updates. The channel is closed when ctx
	// is cancelled or the connection is lost.
	Stream(ctx context.Context) (<-chan StreamUpdate, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// OSIdleRequest is the body of POST /api/os-idle.
type OSIdleRequest struct {
	IdleSeconds float64 `json:"idle_seconds"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	ContextKey string        `json:"context_key"`
	Outcome    trust.Outcome `json:"outcome"`
}

// FeedbackResponse is returned by POST /api/feedback.
type FeedbackResponse struct {
	ContextKey string  `json:"context_key"`
	Outcome    string  `json:"outcome,omitempty"`
	Score      float64 `json:"score"`
}

// Health is returned by GET /health.
type Health struct {
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
}

// RunningConfig holds the active configuration being used by the daemon.
// Durations are rendered as strings (e.g. "12s") so they read the same as nudge.yml.
type RunningConfig struct {
	InstanceID      string    `json:"instance_id"`
	StartedAt       time.Time `json:"started_at"`
	IdleThreshold   string    `json:"idle_threshold"`
	AcceptCooldown  string    `json:"accept_cooldown"`
	DismissCooldown string    `json:"dismiss_cooldown"`
	TickInterval    string    `json:"tick_interval"`
	HistoryCapacity int       `json:"history_capacity"`
	Smoothing       float64   `json:"smoothing"`
	InitialTrust    float64   `json:"initial_trust"`
	DefaultContext  string    `json:"default_context"`
	Socket          string    `json:"socket"`
	Sources         []string  `json:"sources,omitempty"`
	Stats           Stats     `json:"stats"`
	// RestartRequired is set once a config file changed on disk after startup.
	RestartRequired bool   `json:"restart_required,omitempty"`
	ChangedFile     string `json:"changed_file,omitempty"`
}

// Stats mirrors the daemon's update counters.
type Stats struct {
	Transitions   uint64    `json:"transitions"`
	Feedback      uint64    `json:"feedback"`
	ConfigChanges uint64    `json:"config_changes"`
	LastUpdate    time.Time `json:"last_update,omitempty"`
	Subscribers   int       `json:"subscribers"`
	Dropped       uint64    `json:"dropped"`
}

// Update types carried by StreamUpdate.
const (
	UpdateInitial       = "initial"
	UpdateTransition    = "transition"
	UpdateFeedback      = "feedback"
	UpdateTrustReset    = "trust_reset"
	UpdateConfigChanged = "config_changed"
)

// StreamUpdate represents an update pushed from the daemon to subscribers.
type StreamUpdate struct {
	UpdateType string              `json:"update_type"`
	Source     string              `json:"source,omitempty"`
	At         time.Time           `json:"at"`
	Transition *trigger.Transition `json:"transition,omitempty"`
	Decision   *trigger.Decision   `json:"decision,omitempty"`
	Feedback   *FeedbackResponse   `json:"feedback,omitempty"`
	ContextKey string              `json:"context_key,omitempty"`
	ConfigFile string              `json:"config_file,omitempty"`
}
