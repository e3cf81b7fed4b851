package cmd

import (
	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/logging"
	"github.com/spf13/cobra"
)

// NewIdleCmd creates the `idle` command.
func NewIdleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idle",
		Short: "Show idle time, or report the OS idle time",
		Long: `Without flags, prints the daemon's idle snapshot. With --report, forwards an
OS idle reading first, which is how a desktop hook feeds system-wide idle time.

Examples:
  nudge idle
  nudge idle --report 45s
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if cmd.Flags().Changed("report") {
				d, _ := cmd.Flags().GetDuration("report")
				if err := client.ObserveOSIdle(cmd.Context(), d); err != nil {
					return err
				}
			}

			snap, err := client.Idle(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, snap)
			}
			out := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			out.Field("Effective idle", formatDuration(snap.EffectiveIdle))
			out.Field("Local idle", formatDuration(snap.LocalIdle))
			out.Field("OS idle", formatDuration(snap.OSIdle))
			out.Field("Last activity", snap.LastActivityKind.String())
			return nil
		},
	}
	cmd.Flags().Duration("report", 0, "OS idle time to report to the daemon")
	return cmd
}
