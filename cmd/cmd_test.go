package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/internal/cooldown"
	"github.com/grovetools/nudge/internal/idle"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{340 * time.Millisecond, "300ms"},
		{1500 * time.Millisecond, "2s"},
		{89*time.Second + 400*time.Millisecond, "1m29s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in), "formatDuration(%v)", tt.in)
	}
}

func TestFormatEvent(t *testing.T) {
	assert.Equal(t, "idle_threshold_crossed", formatEvent(trigger.IdleThresholdCrossed()))
	assert.Equal(t, "opportunity_detected candidate=c-1 context=editor",
		formatEvent(trigger.OpportunityDetected("c-1", "editor")))
	assert.Equal(t, "enter_cooldown reason=user_dismissed",
		formatEvent(trigger.EnterCooldown(cooldown.ReasonUserDismissed)))
	assert.Equal(t, "activity_detected activity=keyboard",
		formatEvent(trigger.ActivityDetected(idle.ActivityKeyboard)))
}

func eventCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := NewEventCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestEventFromFlags(t *testing.T) {
	ev, err := eventFromFlags(eventCmd(t, "--candidate", "c-9", "--context", "shell"), "opportunity")
	require.NoError(t, err)
	assert.Equal(t, trigger.OpportunityDetected("c-9", "shell"), ev)

	ev, err = eventFromFlags(eventCmd(t, "--activity", "mouse"), "activity")
	require.NoError(t, err)
	assert.Equal(t, idle.ActivityMouse, ev.Activity)

	ev, err = eventFromFlags(eventCmd(t, "--reason", "user_dismissed"), "cooldown")
	require.NoError(t, err)
	assert.Equal(t, cooldown.ReasonUserDismissed, ev.Reason)

	ev, err = eventFromFlags(eventCmd(t), "accept")
	require.NoError(t, err)
	assert.Equal(t, trigger.Accept(), ev)

	before := time.Now()
	ev, err = eventFromFlags(eventCmd(t, "--for", "10m"), "pause")
	require.NoError(t, err)
	require.NotNil(t, ev.Until)
	assert.WithinDuration(t, before.Add(10*time.Minute), *ev.Until, 5*time.Second)
}

func TestEventFromFlagsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		kind string
		args []string
	}{
		{"unknown kind", "teleport", nil},
		{"opportunity without candidate", "opportunity", nil},
		{"unknown activity", "activity", []string{"--activity", "telepathy"}},
		{"unknown reason", "cooldown", []string{"--reason", "boredom"}},
		{"negative pause", "pause", []string{"--for", "-1m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eventFromFlags(eventCmd(t, tt.args...), tt.kind)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
		})
	}
}

func TestPrintLogText(t *testing.T) {
	var buf bytes.Buffer
	printLogText(&buf, `{"time":"2026-01-02T03:04:05Z","level":"info","msg":"Daemon started","component":"nudged","socket":"/tmp/s"}`)
	out := buf.String()
	assert.Contains(t, out, "Daemon started")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "nudged")
	assert.Contains(t, out, "/tmp/s")

	buf.Reset()
	printLogText(&buf, "not json")
	assert.Equal(t, "not json\n", buf.String())
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewStandardCommand("nudge", "test")
	root.AddCommand(NewConfigCmd(), NewPathsCmd())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	home := testutil.IsolateHome(t)
	path := filepath.Join(home, "project", "nudge.yml")
	testutil.WriteFile(t, path, "trigger:\n  idle_threshold: 7s\n")

	out, err := runRoot(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "idle_threshold: 7s")

	out, err = runRoot(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := filepath.Join(home, "project", "bad.yml")
	testutil.WriteFile(t, bad, "trust:\n  smoothing: 2\n")
	_, err = runRoot(t, "config", "validate", bad)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))

	out, err = runRoot(t, "config", "schema")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestPathsCommandJSON(t *testing.T) {
	home := testutil.IsolateHome(t)
	out, err := runRoot(t, "paths", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "run", "nudged.sock"))
	assert.Contains(t, out, filepath.Join(home, "state", "nudged.pid"))
}

func TestEventAndFeedbackHelpListNames(t *testing.T) {
	root := cli.NewStandardCommand("nudge", "test")
	root.AddCommand(NewEventCmd(), NewFeedbackCmd())
	cli.ApplyStyledHelpRecursive(root)

	help := func(args ...string) string {
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(args)
		require.NoError(t, root.Execute())
		return out.String()
	}

	out := help("event", "--help")
	for _, title := range []string{"KINDS", "ACTIVITY", "COOLDOWN REASONS"} {
		assert.Contains(t, out, title)
	}
	for _, k := range trigger.EventKinds() {
		assert.Contains(t, out, k.String())
	}
	assert.Contains(t, out, "user_dismissed")
	assert.Contains(t, out, "scroll")

	out = help("feedback", "--help")
	assert.Contains(t, out, "OUTCOMES")
	assert.Contains(t, out, "neutral")
}
