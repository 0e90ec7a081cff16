package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/preview"
	"github.com/invdash/invdash/internal/progress"
)

func newPreviewCmd() *cobra.Command {
	var noAnimate bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the headline metrics and the merged data",
		Long: `Show the total record count, unique brands and categories, the
sales/purchase ratio and a table of the merged inventory data.

On a terminal the counters count up; --no-animate prints them directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			view, err := app.Preview.Load(GetContext())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, previewOutput(view)); ok {
				return err
			}
			animate := !noAnimate && progress.IsTerminal(stdoutFile(cmd))
			return view.Render(out, animate)
		},
	}

	cmd.Flags().BoolVar(&noAnimate, "no-animate", false, "Print the counters without animating them")

	return cmd
}

type previewDoc struct {
	Empty   string           `json:"empty,omitempty" yaml:"empty,omitempty"`
	Metrics *preview.Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Headers []string         `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    [][]string       `json:"rows,omitempty" yaml:"rows,omitempty"`
}

func previewOutput(v *preview.View) previewDoc {
	if v.Empty != "" {
		return previewDoc{Empty: v.Empty}
	}
	return previewDoc{Metrics: v.Metrics, Headers: v.Table.Headers, Rows: v.Table.Rows}
}

func newExportCmd() *cobra.Command {
	var outputPath string
	var format string
	var archiveURL string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the merged data as CSV or XLSX",
		Long: `Export every record of the merged inventory data.

The format comes from --format or the output file's extension and
defaults to CSV. With --archive the written file is also uploaded to
S3 (s3://bucket/prefix) or Azure Blob Storage (azblob://account/container/prefix).
S3 credentials come from the usual AWS environment and shared config;
Azure uses ` + "AZURE_STORAGE_SAS_TOKEN" + `.

Examples:
  invdash export
  invdash export -o inventory.xlsx
  invdash export --format xlsx --archive s3://reports/inventory`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			opts := preview.ExportOptions{Path: outputPath, Format: format}
			if _, _, err := preview.ResolveExport(opts); err != nil {
				return err
			}
			if archiveURL != "" {
				archiver, err := app.Archiver(archiveURL)
				if err != nil {
					return err
				}
				opts.Archiver = archiver
			}

			res, err := app.Preview.Export(GetContext(), opts)
			if errors.Is(err, api.ErrNoData) {
				// nothing to export is reported by the panel, not a failure
				return nil
			}
			if res != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote %s records to %s\n", display.Count(int64(res.Records)), res.Path)
				if res.ArchiveTo != "" {
					fmt.Fprintf(out, "Archived to %s\n", res.ArchiveTo)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output file (default inventory_data.csv or .xlsx)")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (default from the file extension)")
	cmd.Flags().StringVar(&archiveURL, "archive", "", "Also upload the export to s3://... or azblob://...")

	return cmd
}
