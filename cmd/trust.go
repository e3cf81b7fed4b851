package cmd

import (
	"fmt"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/internal/trust"
	"github.com/grovetools/nudge/logging"
	"github.com/grovetools/nudge/tui/components/table"
	"github.com/spf13/cobra"
)

// NewFeedbackCmd creates the `feedback` command.
func NewFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <context> <outcome>",
		Short: "Record feedback for a trust context",
		Long: `Apply a positive, negative or neutral outcome to a trust context outside the
accept/dismiss flow.

Examples:
  nudge feedback editor positive
  nudge feedback shell negative
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := trust.ParseOutcome(args[1])
			if err != nil {
				return err
			}

			client, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.Feedback(cmd.Context(), args[0], outcome)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, res)
			}
			out := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			out.Success(fmt.Sprintf("Recorded %s feedback for %s", outcome, res.ContextKey))
			out.Field("Trust", fmt.Sprintf("%.4f", res.Score))
			return nil
		},
	}

	outcomes := cli.HelpSection{Title: "OUTCOMES"}
	for _, o := range trust.Outcomes() {
		desc := "counted only, the score is unchanged"
		switch o {
		case trust.OutcomePositive:
			desc = "moves the score toward 1"
		case trust.OutcomeNegative:
			desc = "moves the score toward 0"
		}
		outcomes.Rows = append(outcomes.Rows, [2]string{o.String(), desc})
	}
	cli.AddHelpSection(cmd, outcomes)
	return cmd
}

// NewTrustCmd creates the `trust` command.
func NewTrustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust [context]",
		Short: "Show trust scores and feedback metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset-metrics")
			if reset && len(args) == 0 {
				return fmt.Errorf("--reset-metrics needs a context")
			}

			client, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var entries []trust.Entry
			if len(args) == 1 {
				if reset {
					if err := client.ResetMetrics(cmd.Context(), args[0]); err != nil {
						return err
					}
				}
				entry, err := client.TrustFor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries = []trust.Entry{*entry}
			} else {
				if entries, err = client.Trust(cmd.Context()); err != nil {
					return err
				}
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No trust contexts yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ContextKey,
					fmt.Sprintf("%.4f", e.Score),
					fmt.Sprintf("%d", e.Metrics.Positive),
					fmt.Sprintf("%d", e.Metrics.Negative),
					fmt.Sprintf("%d", e.Metrics.Neutral),
					fmt.Sprintf("%.0f%%", e.Metrics.SuccessRate*100),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), table.Render(
				[]string{"CONTEXT", "SCORE", "POSITIVE", "NEGATIVE", "NEUTRAL", "SUCCESS"}, rows))
			return nil
		},
	}
	cmd.Flags().Bool("reset-metrics", false, "Clear the feedback tally of the given context (its score is kept)")
	return cmd
}
