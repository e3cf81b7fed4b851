package cmd

import (
	"fmt"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/logging"
	"github.com/grovetools/nudge/tui/theme"
	"github.com/spf13/cobra"
)

// NewDecisionCmd creates the `decision` command.
func NewDecisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decision",
		Short: "Show whether a suggestion may be presented right now",
		Long: `Ask the daemon for its current decision.

Examples:
  # Human readable
  nudge decision

  # For scripts and presenters
  nudge decision --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			d, err := client.Decision(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, d)
			}

			out := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			t := theme.DefaultTheme
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", t.Muted.Render("state:"), formatState(d.State, d.At))
			if d.MayPresent {
				out.Success(fmt.Sprintf("May present candidate %s", d.CandidateID))
			} else {
				out.InfoPretty("Nothing to present")
			}
			out.Field("Context", d.ContextKey)
			out.Field("Trust", fmt.Sprintf("%.3f", d.Trust))
			if d.CooldownRemaining > 0 {
				out.Field("Cooldown", formatDuration(d.CooldownRemaining))
			}
			if d.CandidateID != "" && !d.MayPresent {
				out.Field("Candidate", d.CandidateID)
			}
			return nil
		},
	}
}
