package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/grovetools/nudge/cli"
	"github.com/grovetools/nudge/config"
	"github.com/grovetools/nudge/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate nudge configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Shows the configuration the daemon would load from the current directory.

With --layers, every layer is printed before the merged result:
1. Global config (~/.config/nudge/nudge.yml)
2. Project config (nudge.yml, nudge.toml)
3. Override files (nudge.override.yml)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			showLayers, _ := cmd.Flags().GetBool("layers")
			out := cmd.OutOrStdout()

			if !showLayers {
				cfg, err := cli.LoadConfig(cmd)
				if err != nil {
					return err
				}
				if cli.GetOptions(cmd).JSONOutput {
					return printJSON(cmd, cfg)
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprint(out, string(data))
				return nil
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			layered, err := config.LoadLayered(cwd)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, layered)
			}
			for _, layer := range layered.Layers {
				fmt.Fprintf(out, "--- # %s CONFIG\n# Source: %s\n", strings.ToUpper(string(layer.Source)), layer.Path)
				data, _ := yaml.Marshal(layer.Raw)
				fmt.Fprintln(out, string(data))
			}
			fmt.Fprintln(out, "--- # FINAL MERGED CONFIG")
			data, _ := yaml.Marshal(layered.Final)
			fmt.Fprint(out, string(data))
			return nil
		},
	}
	cmd.Flags().Bool("layers", false, "Show every configuration layer before the merged result")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file or the layered configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *config.Config
				err error
			)
			if len(args) == 1 {
				cfg, err = config.Load(args[0])
			} else {
				cfg, err = cli.LoadConfig(cmd)
			}
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, map[string]interface{}{
					"valid":   true,
					"sources": cfg.Sources,
				})
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Success("Configuration is valid")
			if len(cfg.Sources) == 0 {
				pretty.Field("Sources", "(defaults only)")
			}
			for _, src := range cfg.Sources {
				pretty.Path("Source", src)
			}
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for nudge.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
