package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/pkg/logging/logutil"
	"github.com/grovetools/nudge/tui/theme"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon and CLI logs",
		Long: `Prints the newest log file written by the daemon (or another component).
Log files are JSON lines under the nudge state directory.

Examples:
  # Last 50 daemon log lines
  nudge logs -n 50

  # Follow the daemon log
  nudge logs -f

  # Raw JSON lines
  nudge logs --json
`,
		Args: cobra.NoArgs,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", -1, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().String("component", "nudged", "Component whose log to show")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd, "nudge")
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	component, _ := cmd.Flags().GetString("component")
	jsonOutput := cli.GetOptions(cmd).JSONOutput
	out := cmd.OutOrStdout()

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		logger.WithError(err).Debug("No usable config, using the default log location")
		cfg = nil
	}
	logFile, err := logutil.FindLogFile(cfg, component)
	if err != nil {
		return err
	}
	logger.WithField("log_file", logFile).Debug("Reading log file")

	emit := func(line string) {
		if line == "" {
			return
		}
		if jsonOutput {
			fmt.Fprintln(out, line)
		} else {
			printLogText(out, line)
		}
	}

	existing, err := logutil.LastLines(logFile, lines)
	if err != nil {
		return err
	}
	for _, line := range existing {
		emit(line)
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(logFile, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Logger:   tail.DiscardingLogger,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", logFile, err)
	}
	defer t.Cleanup()
	defer t.Stop()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			emit(strings.TrimSpace(line.Text))
		}
	}
}

// printLogText pretty-prints a JSON log line for human consumption.
func printLogText(w io.Writer, line string) {
	t := theme.DefaultTheme
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fmt.Fprintln(w, line)
		return
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		parsedTime, _ = time.Parse(time.RFC3339, ts)
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = t.Error
	case "warning":
		levelStyle = t.Warning
	case "info":
		levelStyle = t.Info
	default:
		levelStyle = t.Muted
	}

	var keys []string
	for k := range logMap {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", t.Muted.Render(k), logMap[k]))
	}

	fmt.Fprintf(w, "%s %s [%s] %s %s\n",
		parsedTime.Format("15:04:05"),
		levelStyle.Render(strings.ToUpper(level)),
		t.Accent.Render(component),
		msg,
		strings.Join(fields, " "),
	)
}
