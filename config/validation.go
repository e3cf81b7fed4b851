package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/grovetools/nudge/errors"
)

// Validate checks the semantic rules the schema cannot express. It expects
// SetDefaults to have run.
func (c *Config) Validate() error {
	t := c.Trigger
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"trigger.idle_threshold", t.IdleThreshold},
		{"trigger.accept_cooldown", t.AcceptCooldown},
		{"trigger.dismiss_cooldown", t.DismissCooldown},
		{"trigger.tick_interval", t.TickInterval},
	}
	for _, f := range durations {
		if f.d <= 0 {
			return errors.ConfigInvalid(fmt.Sprintf("%s must be positive", f.name)).WithDetail("field", f.name)
		}
	}
	if t.DismissCooldown < t.AcceptCooldown {
		return errors.ConfigInvalid("trigger.dismiss_cooldown must not be shorter than trigger.accept_cooldown").
			WithDetail("accept_cooldown", t.AcceptCooldown.String()).
			WithDetail("dismiss_cooldown", t.DismissCooldown.String())
	}
	if t.HistoryCapacity < 1 {
		return errors.ConfigInvalid("trigger.history_capacity must be at least 1").
			WithDetail("history_capacity", t.HistoryCapacity)
	}

	s := c.SmoothingFactor()
	if math.IsNaN(s) || s <= 0 || s > 1 {
		return errors.ConfigInvalid("trust.smoothing must be in (0, 1]").WithDetail("smoothing", s)
	}
	if math.IsNaN(c.Trust.Initial) || c.Trust.Initial < 0 || c.Trust.Initial > 1 {
		return errors.ConfigInvalid("trust.initial must be in [0, 1]").WithDetail("initial", c.Trust.Initial)
	}
	if strings.TrimSpace(c.Trust.DefaultContext) == "" {
		return errors.ConfigInvalid("trust.default_context must not be blank")
	}
	return nil
}
