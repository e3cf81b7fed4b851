package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/pkg/daemon"
	"github.com/grovetools/nudge/tui/theme"
	"github.com/spf13/cobra"
)

// ExitError ends the process with Code without printing anything further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

var errStopped = &ExitError{Code: 1}

// connect loads the config and dials the daemon it names.
func connect(cmd *cobra.Command) (*daemon.RemoteClient, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return daemon.Connect(cfg.Daemon.Socket)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatState renders a state with its mode coloured.
func formatState(st trigger.State, now time.Time) string {
	t := theme.DefaultTheme
	mode := t.ModeStyle(st.Mode.String()).Render(st.Mode.String())
	switch {
	case st.Cooldown != nil:
		return fmt.Sprintf("%s (%s, %s left)", mode, st.Cooldown.Reason, formatDuration(st.Cooldown.Remaining(now)))
	case st.Mode == trigger.ModePaused && st.PausedUntil != nil:
		return fmt.Sprintf("%s (until %s)", mode, st.PausedUntil.Local().Format("15:04:05"))
	case st.Mode == trigger.ModePaused:
		return fmt.Sprintf("%s (until resumed)", mode)
	}
	return mode
}

// formatDuration rounds to whole seconds, or tenths below a second.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatEvent(ev trigger.Event) string {
	var parts []string
	if ev.CandidateID != "" {
		parts = append(parts, "candidate="+ev.CandidateID)
	}
	if ev.ContextKey != "" {
		parts = append(parts, "context="+ev.ContextKey)
	}
	if ev.Kind == trigger.EventActivityDetected {
		parts = append(parts, "activity="+ev.Activity.String())
	}
	if ev.Kind == trigger.EventEnterCooldown {
		parts = append(parts, "reason="+ev.Reason.String())
	}
	if ev.Until != nil {
		parts = append(parts, "until="+ev.Until.Local().Format("15:04:05"))
	}
	if len(parts) == 0 {
		return ev.Kind.String()
	}
	return ev.Kind.String() + " " + strings.Join(parts, " ")
}
