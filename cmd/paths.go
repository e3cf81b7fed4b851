package cmd

import (
	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/logging"
	"github.com/grovetools/nudge/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the directories and files nudge uses.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	LogDir     string `json:"log_dir"`
	RuntimeDir string `json:"runtime_dir"`
	Socket     string `json:"socket"`
	PidFile    string `json:"pid_file"`
}

func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by nudge",
		Long: `Print the XDG-compliant paths used by nudge.

NUDGE_HOME moves everything under one directory, which is handy for tests
and portable setups:
- config_dir: Global nudge.yml
- state_dir: PID file and logs
- runtime_dir: Daemon socket (XDG_RUNTIME_DIR when set)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				LogDir:     paths.LogDir(),
				RuntimeDir: paths.RuntimeDir(),
				Socket:     paths.SocketPath(),
				PidFile:    paths.PidFilePath(),
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, output)
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Path("Config", output.ConfigDir)
			pretty.Path("State", output.StateDir)
			pretty.Path("Logs", output.LogDir)
			pretty.Path("Runtime", output.RuntimeDir)
			pretty.Path("Socket", output.Socket)
			pretty.Path("PID file", output.PidFile)
			return nil
		},
	}
}
