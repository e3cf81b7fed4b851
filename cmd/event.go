package cmd

import (
	"fmt"
	"time"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/cooldown"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/spf13/cobra"
)

// NewEventCmd creates the `event` command.
func NewEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event <kind>",
		Short: "Submit an event to the trigger engine",
		Long: `Submit one event to the daemon's state machine. Rejected events leave the
state untouched and exit non-zero. Kinds may be given by their full name or
by the first word (activity, idle, opportunity, ...).

Examples:
  # Report keyboard input
  nudge event activity --activity keyboard

  # Offer a candidate for the "editor" trust context
  nudge event opportunity --candidate c-42 --context editor

  # The user accepted it
  nudge event presented
  nudge event accept
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := eventFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			return submit(cmd, ev)
		},
	}

	cmd.Flags().String("activity", "unknown", "Activity kind for activity events: keyboard, mouse, scroll, or unknown")
	cmd.Flags().String("candidate", "", "Candidate id for opportunity events")
	cmd.Flags().String("context", "", "Trust context key for opportunity events")
	cmd.Flags().String("reason", "system_backoff", "Cooldown reason for cooldown events: system_backoff, user_dismissed")
	cmd.Flags().Duration("for", 0, "Pause length for pause events (0 pauses until resumed)")

	cli.AddHelpSection(cmd, eventKindsHelp())
	cli.AddHelpSection(cmd, activityKindsHelp())
	cli.AddHelpSection(cmd, reasonsHelp())
	return cmd
}

var eventHelp = map[trigger.EventKind]string{
	trigger.EventActivityDetected:     "user input; disarms an armed engine",
	trigger.EventIdleThresholdCrossed: "idle long enough to arm",
	trigger.EventOpportunityDetected:  "a candidate is available (--candidate)",
	trigger.EventCandidatePresented:   "the candidate was shown",
	trigger.EventAccept:               "the user took the suggestion",
	trigger.EventDismiss:              "the user dismissed the suggestion",
	trigger.EventEnterCooldown:        "back off for a while (--reason)",
	trigger.EventCooldownExpired:      "the cooldown window ran out",
	trigger.EventPauseRequested:       "stop suggesting (--for)",
	trigger.EventResumeRequested:      "end a pause",
	trigger.EventPauseElapsed:         "a timed pause ran out",
}

func eventKindsHelp() cli.HelpSection {
	s := cli.HelpSection{Title: "KINDS"}
	for _, k := range trigger.EventKinds() {
		s.Rows = append(s.Rows, [2]string{k.String(), eventHelp[k]})
	}
	return s
}

func activityKindsHelp() cli.HelpSection {
	s := cli.HelpSection{Title: "ACTIVITY"}
	for _, k := range idle.ActivityKinds() {
		s.Rows = append(s.Rows, [2]string{k.String(), ""})
	}
	return s
}

func reasonsHelp() cli.HelpSection {
	s := cli.HelpSection{Title: "COOLDOWN REASONS"}
	for _, r := range cooldown.Reasons() {
		desc := "routine backoff, accept cooldown length"
		if r == cooldown.ReasonUserDismissed {
			desc = "explicit dismissal, dismiss cooldown length"
		}
		s.Rows = append(s.Rows, [2]string{r.String(), desc})
	}
	return s
}

func eventFromFlags(cmd *cobra.Command, kindName string) (trigger.Event, error) {
	kind, err := trigger.ParseEventKind(kindName)
	if err != nil {
		return trigger.Event{}, err
	}

	switch kind {
	case trigger.EventActivityDetected:
		name, _ := cmd.Flags().GetString("activity")
		activity, err := idle.ParseActivityKind(name)
		if err != nil {
			return trigger.Event{}, err
		}
		return trigger.ActivityDetected(activity), nil

	case trigger.EventOpportunityDetected:
		candidate, _ := cmd.Flags().GetString("candidate")
		contextKey, _ := cmd.Flags().GetString("context")
		if candidate == "" {
			return trigger.Event{}, errors.InvalidInput("candidate", "--candidate is required for opportunity events")
		}
		return trigger.OpportunityDetected(candidate, contextKey), nil

	case trigger.EventEnterCooldown:
		name, _ := cmd.Flags().GetString("reason")
		reason, err := cooldown.ParseReason(name)
		if err != nil {
			return trigger.Event{}, err
		}
		return trigger.EnterCooldown(reason), nil

	case trigger.EventPauseRequested:
		d, _ := cmd.Flags().GetDuration("for")
		return pauseEvent(d)
	}
	return trigger.Event{Kind: kind}, nil
}

func pauseEvent(d time.Duration) (trigger.Event, error) {
	if d < 0 {
		return trigger.Event{}, errors.InvalidInput("for", "pause length must not be negative")
	}
	if d == 0 {
		return trigger.PauseRequested(nil), nil
	}
	until := time.Now().Add(d)
	return trigger.PauseRequested(&until), nil
}

func submit(cmd *cobra.Command, ev trigger.Event) error {
	client, err := connect(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	st, err := client.Submit(cmd.Context(), ev)
	if err != nil {
		return err
	}
	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd, st)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatState(*st, time.Now()))
	return nil
}

// NewPauseCmd creates the `pause` command.
func NewPauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Suppress suggestions, optionally for a fixed time",
		Long: `Pause the trigger engine. A timed pause ends on its own; an open pause lasts
until 'nudge resume'.

Examples:
  nudge pause --for 30m
  nudge pause
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _ := cmd.Flags().GetDuration("for")
			ev, err := pauseEvent(d)
			if err != nil {
				return err
			}
			return submit(cmd, ev)
		},
	}
	cmd.Flags().Duration("for", 0, "How long to pause (0 pauses until resumed)")
	return cmd
}

// NewResumeCmd creates the `resume` command.
func NewResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Lift a pause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, trigger.ResumeRequested())
		},
	}
}
