package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wayfind/intent-engine/internal/engine"
	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [TASK_ID]",
	Short: "Show the focused task and its context",
	Long: `Show the context snapshot for the focused task (or a specific task
id): the task itself, its ancestors, siblings, children, and recent
events. This is the payload a fresh AI session uses to restore context.`,
	Args: cobra.MaximumNArgs(1),
}

func runStatus(taskID *int64) error {
	eng, closeStore, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := cmdContext()
	defer stop()
	snap, err := eng.Status(ctx, engine.StatusOptions{
		TaskID:        taskID,
		IncludeEvents: viper.GetInt("include_events"),
	})
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(snap)
	}
	renderSnapshot(snap)
	return nil
}

func renderSnapshot(snap *intent.Snapshot) {
	stats := snap.WorkspaceStats

	if snap.NotFound {
		fmt.Println(ui.StyleWarning.Render("Task not found."))
		renderStats(stats)
		return
	}
	if snap.FocusedTask == nil {
		fmt.Println(ui.StyleSubtle.Render("No task is focused."))
		renderStats(stats)
		fmt.Println()
		fmt.Println(ui.StyleSubtle.Render(`Start one with: echo '{"tasks":[{"name":"...","status":"doing","spec":"..."}]}' | intent-engine plan`))
		return
	}

	t := snap.FocusedTask
	header := fmt.Sprintf("#%d %s", t.ID, t.Name)
	body := []string{ui.StyleTitle.Render(header),
		"status: " + ui.StatusStyle(string(t.Status)).Render(string(t.Status))}
	if t.Priority != "" {
		body = append(body, "priority: "+string(t.Priority))
	}
	if strings.TrimSpace(t.Spec) != "" {
		body = append(body, "", t.Spec)
	}
	fmt.Println(ui.StyleFocusBox.Render(strings.Join(body, "\n")))

	if len(snap.Ancestors) > 0 {
		fmt.Println(ui.StyleSectionTitle.Render("Ancestors"))
		for _, a := range snap.Ancestors {
			fmt.Printf("  #%d %s [%s]\n", a.ID, a.Name, a.Status)
		}
	}
	if len(snap.Siblings) > 0 {
		fmt.Println(ui.StyleSectionTitle.Render("Siblings"))
		for _, s := range snap.Siblings {
			fmt.Printf("  #%d %s [%s]\n", s.ID, s.Name, s.Status)
		}
	}
	if len(snap.Children) > 0 {
		fmt.Println(ui.StyleSectionTitle.Render("Children"))
		for _, c := range snap.Children {
			fmt.Printf("  #%d %s [%s]\n", c.ID, c.Name, c.Status)
		}
	}
	if len(snap.RecentEvents) > 0 {
		fmt.Println(ui.StyleSectionTitle.Render("Recent events"))
		for _, e := range snap.RecentEvents {
			ts := e.Timestamp.Format("2006-01-02 15:04")
			fmt.Printf("  %s %s  %s\n", ui.StyleSubtle.Render(ts), e.LogType, e.Message)
		}
	}
	renderStats(stats)
}

func renderStats(stats intent.WorkspaceStats) {
	fmt.Printf("%s todo %d · doing %d · done %d (total %d)\n",
		ui.StyleSubtle.Render("tasks:"), stats.Todo, stats.Doing, stats.Done, stats.Total)
}

func init() {
	statusCmd.RunE = func(cmd *cobra.Command, args []string) error {
		var taskID *int64
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return reportError(fmt.Errorf("invalid task id %q", args[0]))
			}
			taskID = &id
		}
		return reportError(runStatus(taskID))
	}
	statusCmd.Flags().Int("include-events", engine.DefaultRecentEvents, "Number of recent events to include")
	_ = viper.BindPFlag("include_events", statusCmd.Flags().Lookup("include-events"))
	rootCmd.AddCommand(statusCmd)
}
