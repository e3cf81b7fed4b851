package main

import (
	"fmt"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-basic-version",
		Description: "Prints build metadata as text and JSON.",
		Tags:        []string{"nudge", "cli"},
		Steps: []harness.Step{
			{
				Name: "Run 'nudge version'",
				Func: func(ctx *harness.Context) error {
					out, _, err := run(ctx, ctx.NewDir("version"), "version")
					if err != nil {
						return fmt.Errorf("`nudge version` failed: %w", err)
					}
					if err := assert.Contains(out, "nudge ", "Output should name the binary"); err != nil {
						return err
					}
					if err := assert.Contains(out, "Commit:", "Output should contain Commit"); err != nil {
						return err
					}
					return assert.Contains(out, "Platform:", "Output should contain Platform")
				},
			},
			{
				Name: "Run 'nudge version --json'",
				Func: func(ctx *harness.Context) error {
					out, _, err := run(ctx, ctx.NewDir("version-json"), "version", "--json")
					if err != nil {
						return fmt.Errorf("`nudge version --json` failed: %w", err)
					}
					return assert.Contains(out, `"go_version"`, "JSON output should contain go_version")
				},
			},
		},
	}
}

// PathsScenario checks that 'paths' reports the sandboxed locations.
func PathsScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-basic-paths",
		Description: "Reports the socket and PID file locations.",
		Tags:        []string{"nudge", "cli"},
		Steps: []harness.Step{
			{
				Name: "Run 'nudge paths --json'",
				Func: func(ctx *harness.Context) error {
					out, _, err := run(ctx, ctx.NewDir("paths"), "paths", "--json")
					if err != nil {
						return fmt.Errorf("`nudge paths` failed: %w", err)
					}
					if err := assert.Contains(out, `"socket"`, "paths should list the socket"); err != nil {
						return err
					}
					return assert.Contains(out, "nudged.pid", "paths should list the PID file")
				},
			},
		},
	}
}

// DaemonStoppedScenario checks the client commands when no daemon runs.
func DaemonStoppedScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-daemon-stopped",
		Description: "Status exits non-zero and clients point at 'nudge daemon start'.",
		Tags:        []string{"nudge", "daemon"},
		Steps: []harness.Step{
			{
				Name: "Status reports Stopped",
				Func: func(ctx *harness.Context) error {
					dir, err := writeProjectConfig(ctx, "stopped", "")
					if err != nil {
						return err
					}
					out, _, err := run(ctx, dir, "daemon", "status")
					if err == nil {
						return fmt.Errorf("`nudge daemon status` should fail when the daemon is stopped")
					}
					return assert.Contains(out, "Stopped", "status should say Stopped")
				},
			},
			{
				Name: "Decision asks for the daemon",
				Func: func(ctx *harness.Context) error {
					dir, err := writeProjectConfig(ctx, "stopped-decision", "")
					if err != nil {
						return err
					}
					_, stderr, err := run(ctx, dir, "decision")
					if err == nil {
						return fmt.Errorf("`nudge decision` should fail without a daemon")
					}
					return assert.Contains(stderr, "nudge daemon start", "error should suggest starting the daemon")
				},
			},
			{
				Name: "Invalid event kind is rejected before dialing",
				Func: func(ctx *harness.Context) error {
					dir, err := writeProjectConfig(ctx, "bad-event", "")
					if err != nil {
						return err
					}
					_, stderr, err := run(ctx, dir, "event", "teleport")
					if err == nil {
						return fmt.Errorf("`nudge event teleport` should fail")
					}
					return assert.Contains(stderr, "teleport", "error should name the bad kind")
				},
			},
		},
	}
}
