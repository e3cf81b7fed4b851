package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/cmd"
	"github.com/grovetools/nudge/tui"
)

func main() {
	tui.InitializeTUI()

	rootCmd := cli.NewStandardCommand(
		"nudge",
		"Adaptive trigger and trust engine for proactive suggestions",
	)

	rootCmd.AddCommand(cli.NewVersionCommand("nudge"))
	rootCmd.AddCommand(cmd.NewDaemonCmd())
	rootCmd.AddCommand(cmd.NewDecisionCmd())
	rootCmd.AddCommand(cmd.NewHistoryCmd())
	rootCmd.AddCommand(cmd.NewIdleCmd())
	rootCmd.AddCommand(cmd.NewEventCmd())
	rootCmd.AddCommand(cmd.NewPauseCmd())
	rootCmd.AddCommand(cmd.NewResumeCmd())
	rootCmd.AddCommand(cmd.NewFeedbackCmd())
	rootCmd.AddCommand(cmd.NewTrustCmd())
	rootCmd.AddCommand(cmd.NewWatchCmd())
	rootCmd.AddCommand(cmd.NewLogsCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewPathsCmd())
	cli.ApplyStyledHelpRecursive(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	cli.NewErrorHandler(verbose).Handle(err)
	os.Exit(1)
}
