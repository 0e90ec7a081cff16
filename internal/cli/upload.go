package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/progress"
	"github.com/invdash/invdash/internal/workflow"
)

func newUploadCmd() *cobra.Command {
	var date string
	var downloadTo string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a daily inventory sheet for processing",
		Long: `Upload a daily inventory sheet and follow it through the four processing
phases: upload, processing, database update and report generation.

On success the result summary is printed. With --download-to the processed
file is downloaded into that directory.

Examples:
  invdash upload march_01.xlsx --date 2024-03-01
  invdash upload march_01.xlsx --date 2024-03-01 --download-to ./reports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ui := progress.NewStepUI(cmd.ErrOrStderr(), app.Workflow.PhaseLabels())
			app.Workflow.Observe(ui.PhaseChanged)
			app.Workflow.SetProgressReporter(func(sessionID string) progress.Reporter {
				return progress.NewCLIProgress(ui.Writer())
			})

			// Route log lines above the indicators while they render
			log := GetLogger()
			prev := log.Output()
			log.SetOutput(ui.Writer())
			outcome, err := app.Workflow.Submit(GetContext(), workflow.Submission{FilePath: args[0], Date: date})
			ui.Close()
			log.SetOutput(prev)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, outcome); ok {
				return err
			}
			if err := display.KeyValues(out, outcome.Summary()); err != nil {
				return err
			}

			if downloadTo == "" || outcome.DownloadName() == "" {
				return nil
			}
			path, err := app.Browser.Download(GetContext(), outcome.DownloadName(), downloadTo)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nSaved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&downloadTo, "download-to", "", "Download the processed file into this directory")

	return cmd
}
