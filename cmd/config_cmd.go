package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wayfind/intent-engine/internal/config"
	"github.com/wayfind/intent-engine/internal/intent"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change project defaults",
	Long: `Show or change the per-project defaults stored in
.intent-engine/config.yaml. Supported keys:

  format          default output format (human or json)
  include_events  default event count for status snapshots`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current project defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportError(runConfigShow())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Persist a project default",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportError(runConfigSet(args[0], args[1]))
	},
}

// projectConfigRoot resolves the project root the config file lives in.
// The IE_DATABASE_PATH override carries no root, so config needs a real
// project.
func projectConfigRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	res, err := config.ResolveForWrite(afero.NewOsFs(), cwd)
	if err != nil {
		return "", err
	}
	if res.Root == "" {
		return "", intent.E(intent.TagNotAProject,
			"config lives in the project's .intent-engine directory; unset IE_DATABASE_PATH to use it")
	}
	return res.Root, nil
}

func runConfigShow() error {
	root, err := projectConfigRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFileConfig(root)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cfg)
	}
	format := cfg.Format
	if format == "" {
		format = "human (built-in)"
	}
	events := strconv.Itoa(cfg.IncludeEvents)
	if cfg.IncludeEvents <= 0 {
		events = "5 (built-in)"
	}
	fmt.Printf("format:          %s\n", format)
	fmt.Printf("include_events:  %s\n", events)
	return nil
}

func runConfigSet(key, value string) error {
	root, err := projectConfigRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFileConfig(root)
	if err != nil {
		return err
	}

	switch key {
	case "format":
		if value != "human" && value != "json" {
			return fmt.Errorf("invalid format %q (want human or json)", value)
		}
		cfg.Format = value
	case "include_events":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("include_events must be a positive integer, got %q", value)
		}
		cfg.IncludeEvents = n
	default:
		return fmt.Errorf("unknown config key %q (want format or include_events)", key)
	}

	if err := config.WriteFileConfig(root, cfg); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
