package cmd

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/logger"
	"github.com/wayfind/intent-engine/internal/ui"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Apply a declarative task batch from stdin",
	Long: `Apply a declarative, idempotent batch of task descriptors read as
JSON from stdin:

  echo '{"tasks":[{"name":"Feature A","status":"doing","spec":"## Goal"}]}' | intent-engine plan

Tasks are keyed by name under their parent; existing tasks are updated,
missing ones created. The whole batch commits atomically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportError(runPlan(cmd.InOrStdin()))
	},
}

func runPlan(stdin io.Reader) error {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	logger.SetLastInput(string(data))

	req, err := intent.ParsePlanRequest(data)
	if err != nil {
		return err
	}
	if err := expandFileTokens(req); err != nil {
		return err
	}

	eng, closeStore, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := cmdContext()
	defer stop()
	report, err := eng.Plan(ctx, req)
	if err != nil {
		return err
	}
	return renderPlanReport(report)
}

// fileTokenRe matches @file(path) tokens inside string fields.
var fileTokenRe = regexp.MustCompile(`@file\(([^)]+)\)`)

// expandFileTokens replaces @file(path) tokens in every descriptor
// string field with the UTF-8 contents of the file, before the
// evaluator ever sees the batch.
func expandFileTokens(req *intent.PlanRequest) error {
	var walk func(ds []intent.Descriptor) error
	walk = func(ds []intent.Descriptor) error {
		for i := range ds {
			var err error
			if ds[i].Name, err = expandString(ds[i].Name); err != nil {
				return err
			}
			if ds[i].Spec != nil {
				expanded, err := expandString(*ds[i].Spec)
				if err != nil {
					return err
				}
				ds[i].Spec = &expanded
			}
			if err := walk(ds[i].Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(req.Tasks)
}

func expandString(s string) (string, error) {
	if !strings.Contains(s, "@file(") {
		return s, nil
	}
	var readErr error
	out := fileTokenRe.ReplaceAllStringFunc(s, func(token string) string {
		path := fileTokenRe.FindStringSubmatch(token)[1]
		data, err := os.ReadFile(path)
		if err != nil {
			readErr = intent.Wrap(intent.TagFileRead, err, "cannot read %s: %v", path, err)
			return token
		}
		return string(data)
	})
	if readErr != nil {
		return "", readErr
	}
	return out, nil
}

func renderPlanReport(report *intent.PlanReport) error {
	if jsonOutput() {
		return printJSON(report)
	}

	for _, r := range report.Results {
		status := ui.StatusStyle(string(r.Status)).Render(string(r.Status))
		fmt.Printf("%s  #%d %s [%s]\n", r.Action, r.ID, r.Name, status)
		for _, d := range r.Diagnostics {
			fmt.Printf("    %s\n", ui.StyleSubtle.Render(d))
		}
	}
	if report.CurrentTaskID != nil {
		fmt.Printf("focus: #%d\n", *report.CurrentTaskID)
	} else {
		fmt.Println("focus: none")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(planCmd)
}
