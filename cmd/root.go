package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wayfind/intent-engine/internal/config"
	"github.com/wayfind/intent-engine/internal/logger"
	"github.com/wayfind/intent-engine/internal/project"
	"github.com/wayfind/intent-engine/internal/ui"
)

// version is the application version.
// Set via ldflags at build time: -ldflags "-X github.com/wayfind/intent-engine/cmd.version=1.0.0"
var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intent-engine",
	Short: "Intent-Engine - persistent memory for human-AI collaboration",
	Long: `Intent-Engine - persistent memory for human-AI collaboration

Records strategic intents as a task forest, the events that accompany
their execution, and the currently focused task, so a fresh AI session
can restore its working context with one command.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	initCrashHandler()
	defer logger.HandlePanic()

	ui.Setup()
	rootCmd.SuggestionsMinimumDistance = 2

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initCrashHandler sets up the crash logging context.
func initCrashHandler() {
	logger.SetVersion(version)
	if ctx, err := config.ProjectContext(); err == nil {
		logger.SetBasePath(filepath.Join(ctx.RootPath, project.DotDir))
	}
	if len(os.Args) > 1 {
		logger.SetCommand(strings.Join(os.Args[1:], " "))
	}
}

func init() {
	cobra.OnInitialize(config.LoadEnv)

	rootCmd.PersistentFlags().String("format", "human", "Output format: human or json")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
	rootCmd.PersistentFlags().Bool("quiet", false, "Minimal output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}
