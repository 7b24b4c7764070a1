package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayfind/intent-engine/internal/engine"
	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/timeparsing"
	"github.com/wayfind/intent-engine/internal/ui"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search tasks and events",
	Long: `Full-text search over task names, specs and event messages, returning
a merged, paginated hit list. Status keywords (todo, doing, done) filter
by status instead. Short CJK queries take a substring path so they
still match.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		sinceArg, _ := cmd.Flags().GetString("since")
		untilArg, _ := cmd.Flags().GetString("until")
		return reportError(runSearch(args[0], limit, offset, sinceArg, untilArg))
	},
}

func runSearch(query string, limit, offset int, sinceArg, untilArg string) error {
	opts := engine.SearchOptions{Limit: limit, Offset: offset}

	now := time.Now().UTC()
	if sinceArg != "" {
		t, err := timeparsing.ParseCompact(sinceArg, now)
		if err != nil {
			return err
		}
		opts.Since = &t
	}
	if untilArg != "" {
		t, err := timeparsing.ParseCompact(untilArg, now)
		if err != nil {
			return err
		}
		opts.Until = &t
	}

	eng, closeStore, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := cmdContext()
	defer stop()
	page, err := eng.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(page)
	}
	renderSearchPage(page)
	return nil
}

func renderSearchPage(page *intent.SearchPage) {
	if len(page.Hits) == 0 {
		fmt.Println(ui.StyleSubtle.Render("no matches"))
		return
	}
	for _, h := range page.Hits {
		switch h.Kind {
		case intent.HitTask:
			fmt.Printf("task  #%d %s [%s]\n", h.ID, h.Name, h.Status)
		case intent.HitEvent:
			fmt.Printf("event #%d on task #%d (%s)\n", h.ID, h.TaskID, h.LogType)
		}
		fmt.Printf("      %s\n", h.Snippet)
	}
	fmt.Printf("%s %d task + %d event matches", ui.StyleSubtle.Render("total:"),
		page.TotalTasks, page.TotalEvents)
	if page.HasMore {
		fmt.Printf(" (more available; use --offset %d)", page.Offset+page.Limit)
	}
	fmt.Println()
}

func init() {
	searchCmd.Flags().Int("limit", engine.DefaultSearchLimit, "Maximum hits per source")
	searchCmd.Flags().Int("offset", 0, "Pagination offset")
	searchCmd.Flags().String("since", "", "Only events at or after this time (-1d, 2w, 2025-06-01)")
	searchCmd.Flags().String("until", "", "Only events at or before this time")
	rootCmd.AddCommand(searchCmd)
}
