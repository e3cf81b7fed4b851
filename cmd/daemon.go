package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/internal/clock"
	"github.com/grovetools/nudge/internal/daemon/collector"
	"github.com/grovetools/nudge/internal/daemon/engine"
	"github.com/grovetools/nudge/internal/daemon/pidfile"
	"github.com/grovetools/nudge/internal/daemon/server"
	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/grovetools/nudge/logging"
	"github.com/grovetools/nudge/pkg/daemon"
	"github.com/grovetools/nudge/pkg/paths"
	"github.com/spf13/cobra"
)

const stopTimeout = 5 * time.Second

// NewDaemonCmd returns the daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the nudge daemon",
		Long:  "The daemon owns the trigger engine: it tracks idle time, runs cooldowns and serves decisions over a unix socket.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the nudge daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("failed to create nudge directories: %w", err)
			}

			logger := cli.GetLogger(cmd, "nudged")
			pidPath := cfg.Daemon.PidFile
			sockPath := cfg.Daemon.Socket

			// 1. Acquire Lock
			if err := pidfile.Acquire(pidPath); err != nil {
				return err
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Setup Store and Engine
			st := store.New()
			eng := engine.New(cfg, clock.Real{}, st, logger)
			eng.Register(collector.NewConfigWatcher(cfg.Sources, 0, logger.WithField("collector", "config-watcher")))

			// 3. Setup Server with engine
			srv := server.New(eng, logger)

			// 4. Handle Signals
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engineErr := make(chan error, 1)
			go func() { engineErr <- eng.Start(ctx) }()

			failure := make(chan error, 1)
			go func() {
				select {
				case <-ctx.Done():
					logger.Info("Received stop signal")
				case err := <-engineErr:
					if err != nil {
						logger.WithError(err).Error("Engine stopped")
						failure <- err
					}
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}
			}()

			// 5. Start Server (Blocking)
			logger.WithFields(map[string]interface{}{
				"pid":     os.Getpid(),
				"sources": cfg.Sources,
			}).Info("Starting daemon")
			if err := srv.ListenAndServe(sockPath); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			_ = os.Remove(sockPath)
			select {
			case err := <-failure:
				return err
			default:
				return nil
			}
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			out := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

			stopped, err := pidfile.Stop(cfg.Daemon.PidFile, stopTimeout)
			if err != nil {
				return err
			}
			if !stopped {
				out.InfoPretty("Daemon is not running")
				return nil
			}
			out.Success("Daemon stopped")
			return nil
		},
	}
}

// DaemonStatus is the `daemon status --json` payload.
type DaemonStatus struct {
	Running    bool      `json:"running"`
	PID        int       `json:"pid,omitempty"`
	Socket     string    `json:"socket"`
	InstanceID string    `json:"instance_id,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	// RestartRequired is set when a config file changed after the daemon started.
	RestartRequired bool   `json:"restart_required,omitempty"`
	ChangedFile     string `json:"changed_file,omitempty"`
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Long:  "Report whether the daemon is running. Exits with status 1 when it is stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			status := DaemonStatus{Socket: cfg.Daemon.Socket}
			running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFile)
			if err != nil {
				return err
			}
			status.Running = running
			status.PID = pid

			if running {
				if client, err := daemon.Connect(cfg.Daemon.Socket); err == nil {
					ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
					if h, err := client.Health(ctx); err == nil {
						status.InstanceID = h.InstanceID
						status.StartedAt = h.StartedAt
					}
					if rc, err := client.RunningConfig(ctx); err == nil {
						status.RestartRequired = rc.RestartRequired
						status.ChangedFile = rc.ChangedFile
					}
					cancel()
					client.Close()
				}
			}

			if cli.GetOptions(cmd).JSONOutput {
				if err := printJSON(cmd, status); err != nil {
					return err
				}
			} else if running {
				out := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				out.Success(fmt.Sprintf("Running (PID: %d)", pid))
				out.Path("Socket", status.Socket)
				if status.InstanceID != "" {
					out.Field("Instance", status.InstanceID)
					out.Field("Up", time.Since(status.StartedAt).Round(time.Second).String())
				}
				if status.RestartRequired {
					out.WarnPretty(fmt.Sprintf("%s changed since startup, restart the daemon to apply it", status.ChangedFile))
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			}

			if !running {
				return errStopped
			}
			return nil
		},
	}
}
