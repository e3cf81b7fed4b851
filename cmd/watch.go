package cmd

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/nudge/logging"
	"github.com/grovetools/nudge/tui/watch"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the trigger engine live",
		Long: `Opens an interactive view of the daemon's decision and its most recent
transitions, updated as they happen. Press p to pause, r to resume and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			client, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			updates, err := client.Stream(ctx)
			if err != nil {
				return err
			}

			// Log output would tear the alt screen.
			prev := logging.GetGlobalOutput()
			logging.SetGlobalOutput(io.Discard)
			defer logging.SetGlobalOutput(prev)

			m := watch.New(ctx, client, updates, limit)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntP("limit", "n", 50, "Number of transitions to keep on screen")
	return cmd
}
