package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayfind/intent-engine/internal/config"
	"github.com/wayfind/intent-engine/internal/intent"
)

// logCmd represents the log command
var logCmd = &cobra.Command{
	Use:   "log TYPE MESSAGE",
	Short: "Append an event to the focused task",
	Long: `Append a typed event to the focused task (or an explicit --task).
Types: decision, blocker, milestone, note.

Events are how an AI session records its reasoning for the next one:

  intent-engine log decision "chose SQLite FTS over external index"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, _ := cmd.Flags().GetInt64("task")
		var target *int64
		if cmd.Flags().Changed("task") {
			target = &taskID
		}
		return reportError(runLog(args[0], args[1], target))
	},
}

func runLog(typeArg, message string, taskID *int64) error {
	logType, err := intent.ParseLogType(typeArg)
	if err != nil {
		return err
	}

	eng, closeStore, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := cmdContext()
	defer stop()
	event, err := eng.Log(ctx, logType, message, taskID)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(map[string]any{
			"event":      event,
			"session_id": config.SessionID(),
		})
	}
	fmt.Printf("event #%d (%s) recorded on task #%d at %s\n",
		event.ID, event.LogType, event.TaskID, event.Timestamp.Format("2006-01-02 15:04:05"))
	return nil
}

func init() {
	logCmd.Flags().Int64("task", 0, "Target task id (default: the focused task)")
	rootCmd.AddCommand(logCmd)
}
