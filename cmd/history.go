package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/tui/components/table"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the `history` command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent state transitions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			client, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			transitions, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, transitions)
			}
			if len(transitions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transitions yet")
				return nil
			}

			rows := make([][]string, 0, len(transitions))
			for _, tr := range transitions {
				rows = append(rows, []string{
					fmt.Sprintf("%d", tr.Seq),
					tr.At.Local().Format("15:04:05"),
					tr.From.String(),
					formatEvent(tr.Event),
					tr.To.String(),
				})
			}

			opts := table.DefaultOptions()
			opts.Highlight = func(row, col int) (lipgloss.Style, bool) {
				if col != 4 || row >= len(transitions) {
					return lipgloss.Style{}, false
				}
				return opts.Theme.ModeStyle(transitions[row].To.Mode.String()), true
			}
			fmt.Fprintln(cmd.OutOrStdout(), table.NewStyledTableWithOptions(opts).
				Headers("SEQ", "TIME", "FROM", "EVENT", "TO").
				Rows(rows...).
				Render())
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of transitions to show (0 for all)")
	return cmd
}
