// File: cmd/run.go
package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/engine"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/session"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var (
		taskText   string
		pkg        string
		payloadRef string
		caption    string
		workList   string
		outputPath string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one task or a YAML work list against the connected device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var items []session.WorkItem
			switch {
			case workList != "":
				loaded, err := engine.LoadWorkItems(workList)
				if err != nil {
					return err
				}
				items = loaded
			case taskText != "":
				items = []session.WorkItem{{
					ID:         "cli",
					Task:       taskText,
					Package:    pkg,
					PayloadRef: payloadRef,
					Caption:    caption,
				}}
			default:
				return fmt.Errorf("either --task or --work-list is required")
			}

			ag, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}

			runner, err := engine.NewRunner(ag.sessions, cfg.Engine, logger)
			if err != nil {
				return err
			}

			report := runner.RunAll(ctx, items)
			logger.Info("Batch complete",
				zap.Int("succeeded", report.Succeeded()),
				zap.Int("failed", report.Failed()))

			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if outputPath != "" {
				if err := os.WriteFile(outputPath, out, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}

			if report.Failed() > 0 {
				return fmt.Errorf("%d of %d work items failed", report.Failed(), len(report.Items))
			}
			return nil
		},
	}

	runCmd.Flags().StringVarP(&taskText, "task", "t", "", "task description to execute")
	runCmd.Flags().StringVarP(&pkg, "package", "p", "", "target application package")
	runCmd.Flags().StringVar(&payloadRef, "payload", "", "payload reference passed to the decision service")
	runCmd.Flags().StringVar(&caption, "caption", "", "caption text passed to the decision service")
	runCmd.Flags().StringVarP(&workList, "work-list", "w", "", "YAML file with a list of work items")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON run report to this file instead of stdout")

	return runCmd
}
