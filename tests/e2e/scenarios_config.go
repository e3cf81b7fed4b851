package main

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigLayeringScenario verifies that global, project and override configs merge.
func ConfigLayeringScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-config-layering",
		Description: "Verifies that global, project, and override configs are merged correctly.",
		Tags:        []string{"nudge", "config"},
		Steps: []harness.Step{
			{
				Name: "Setup layered configuration and verify merge logic",
				Func: func(ctx *harness.Context) error {
					globalDir := filepath.Join(ctx.ConfigDir(), "nudge")
					if err := fs.CreateDir(globalDir); err != nil {
						return fmt.Errorf("failed to create global config dir: %w", err)
					}
					globalYAML := `trigger:
  idle_threshold: 20s
  accept_cooldown: 10s
`
					if err := fs.WriteString(filepath.Join(globalDir, "nudge.yml"), globalYAML); err != nil {
						return err
					}

					projectDir, err := writeProjectConfig(ctx, "layered", "trigger:\n  idle_threshold: 15s\n")
					if err != nil {
						return err
					}
					if err := fs.WriteString(filepath.Join(projectDir, "nudge.override.yml"), "trust:\n  default_context: mine\n"); err != nil {
						return err
					}

					out, _, err := run(ctx, projectDir, "config", "show", "--layers")
					if err != nil {
						return fmt.Errorf("`nudge config show --layers` failed: %w", err)
					}
					if err := assert.Contains(out, "FINAL MERGED CONFIG", "final config block should exist"); err != nil {
						return err
					}
					if err := assert.Contains(out, "GLOBAL CONFIG", "global layer should be listed"); err != nil {
						return err
					}
					if err := assert.Contains(out, "idle_threshold: 15s", "project value should win over global"); err != nil {
						return err
					}
					if err := assert.Contains(out, "accept_cooldown: 10s", "global value should survive"); err != nil {
						return err
					}
					return assert.Contains(out, "default_context: mine", "override should be applied")
				},
			},
		},
	}
}

// ConfigValidateScenario checks 'config validate' on good and bad files.
func ConfigValidateScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-config-validate",
		Description: "Accepts a valid file and rejects unknown keys and bad durations.",
		Tags:        []string{"nudge", "config"},
		Steps: []harness.Step{
			{
				Name: "Valid config passes",
				Func: func(ctx *harness.Context) error {
					dir, err := writeProjectConfig(ctx, "valid", "trust:\n  smoothing: 0.2\n")
					if err != nil {
						return err
					}
					out, _, err := run(ctx, dir, "config", "validate")
					if err != nil {
						return fmt.Errorf("`nudge config validate` failed: %w", err)
					}
					return assert.Contains(out, "Configuration is valid", "validate should succeed")
				},
			},
			{
				Name: "Unknown key is rejected",
				Func: func(ctx *harness.Context) error {
					dir, err := writeProjectConfig(ctx, "typo", "trigger:\n  idle_treshold: 5s\n")
					if err != nil {
						return err
					}
					_, stderr, err := run(ctx, dir, "config", "validate")
					if err == nil {
						return fmt.Errorf("`nudge config validate` should reject an unknown key")
					}
					return assert.Contains(stderr, "schema validation failed", "error should come from the schema")
				},
			},
			{
				Name: "Explicit file with a bad duration is rejected",
				Func: func(ctx *harness.Context) error {
					dir := ctx.NewDir("explicit")
					path := filepath.Join(dir, "custom.yml")
					if err := fs.WriteString(path, "trigger:\n  dismiss_cooldown: later\n"); err != nil {
						return err
					}
					_, _, err := run(ctx, dir, "config", "validate", path)
					if err == nil {
						return fmt.Errorf("`nudge config validate %s` should fail", path)
					}
					return nil
				},
			},
			{
				Name: "Missing explicit file reports not found",
				Func: func(ctx *harness.Context) error {
					dir := ctx.NewDir("missing")
					_, stderr, err := run(ctx, dir, "config", "validate", filepath.Join(dir, "nope.yml"))
					if err == nil {
						return fmt.Errorf("validating a missing file should fail")
					}
					return assert.Contains(stderr, "nudge config schema", "error should point at the schema command")
				},
			},
		},
	}
}

// ConfigSchemaScenario checks that 'config schema' prints the JSON schema.
func ConfigSchemaScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-config-schema",
		Description: "Prints a JSON schema that covers every section.",
		Tags:        []string{"nudge", "config"},
		Steps: []harness.Step{
			{
				Name: "Run 'nudge config schema'",
				Func: func(ctx *harness.Context) error {
					out, _, err := run(ctx, ctx.NewDir("schema"), "config", "schema")
					if err != nil {
						return fmt.Errorf("`nudge config schema` failed: %w", err)
					}
					for _, key := range []string{`"trigger"`, `"trust"`, `"daemon"`, `"idle_threshold"`} {
						if err := assert.Contains(out, key, "schema should describe "+key); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

// ConfigTOMLScenario checks that a TOML project config is honoured.
func ConfigTOMLScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "nudge-config-toml",
		Description: "Loads nudge.toml when no YAML config exists.",
		Tags:        []string{"nudge", "config"},
		Steps: []harness.Step{
			{
				Name: "Show a TOML config as YAML",
				Func: func(ctx *harness.Context) error {
					dir := ctx.NewDir("toml")
					toml := "version = \"1.0\"\n\n[trigger]\nidle_threshold = \"3s\"\nhistory_capacity = 10\n"
					if err := fs.WriteString(filepath.Join(dir, "nudge.toml"), toml); err != nil {
						return err
					}
					out, _, err := run(ctx, dir, "config", "show")
					if err != nil {
						return fmt.Errorf("`nudge config show` failed: %w", err)
					}
					if err := assert.Contains(out, "idle_threshold: 3s", "TOML threshold should be loaded"); err != nil {
						return err
					}
					return assert.Contains(out, "history_capacity: 10", "TOML capacity should be loaded")
				},
			},
		},
	}
}
