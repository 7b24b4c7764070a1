package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wayfind/intent-engine/internal/config"
	"github.com/wayfind/intent-engine/internal/project"
	"github.com/wayfind/intent-engine/internal/store"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Initialize an Intent-Engine project",
	Long: `Initialize the project database for the given path (default: the
current directory). Discovery walks upward for a project marker (.git,
package.json, go.mod, ...) and creates .intent-engine/ at the root it
finds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := "."
		if len(args) == 1 {
			start = args[0]
		}
		return reportError(runInit(start))
	},
}

func runInit(start string) error {
	fs := afero.NewOsFs()

	if override := config.DatabaseOverride(); override != "" {
		s, err := store.Open(override)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		ctx, stop := cmdContext()
		defer stop()
		if err := s.IntegrityCheck(ctx); err != nil {
			return err
		}
		return announceInit(override, "", project.MarkerNone)
	}

	ctx, err := project.Discover(fs, start)
	if err != nil {
		return err
	}
	if ctx.Fallback {
		fmt.Fprintln(os.Stderr, "Warning: no project marker found; using the current directory as project root")
	}

	if _, err := project.EnsureLayout(fs, ctx.RootPath); err != nil {
		return fmt.Errorf("create project layout: %w", err)
	}

	s, err := store.Open(ctx.DBPath())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	checkCtx, stop := cmdContext()
	defer stop()
	if err := s.IntegrityCheck(checkCtx); err != nil {
		return err
	}

	return announceInit(ctx.DBPath(), ctx.RootPath, ctx.Marker)
}

func announceInit(dbPath, root string, marker project.Marker) error {
	if jsonOutput() {
		return printJSON(map[string]any{
			"initialized": true,
			"database":    dbPath,
			"root":        root,
			"marker":      string(marker),
			"session_id":  config.SessionID(),
		})
	}
	if root != "" {
		fmt.Printf("Initialized Intent-Engine project at %s", root)
		if marker != project.MarkerNone {
			fmt.Printf(" (marker: %s)", marker)
		}
		fmt.Println()
	}
	fmt.Printf("Database: %s\n", dbPath)
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
